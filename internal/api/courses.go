package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/tumioparbe/web/internal/model"
)

// CourseFilter narrows GetCourses. A nil IsActive lists every course.
type CourseFilter struct {
	IsActive *bool
}

// BatchFilter narrows GetBatches. Zero values are not sent.
type BatchFilter struct {
	IsVisible *bool
	Course    int64
}

func (c *Client) GetCourses(ctx context.Context, f CourseFilter) (model.Paginated[model.Course], error) {
	q := url.Values{}
	setBool(q, "is_active", f.IsActive)

	var out model.Paginated[model.Course]
	err := c.get(ctx, "/courses/courses/", q, &out)
	return out, err
}

func (c *Client) GetCourse(ctx context.Context, id int64) (model.Course, error) {
	var out model.Course
	err := c.get(ctx, "/courses/courses/"+strconv.FormatInt(id, 10)+"/", nil, &out)
	return out, err
}

func (c *Client) GetBatches(ctx context.Context, f BatchFilter) (model.Paginated[model.Batch], error) {
	q := url.Values{}
	setBool(q, "is_visible", f.IsVisible)
	setID(q, "course", f.Course)

	var out model.Paginated[model.Batch]
	err := c.get(ctx, "/courses/batches/", q, &out)
	return out, err
}

func (c *Client) GetBatch(ctx context.Context, id int64) (model.Batch, error) {
	var out model.Batch
	err := c.get(ctx, "/courses/batches/"+strconv.FormatInt(id, 10)+"/", nil, &out)
	return out, err
}

func setBool(q url.Values, key string, v *bool) {
	if v != nil {
		q.Set(key, strconv.FormatBool(*v))
	}
}

func setID(q url.Values, key string, id int64) {
	if id != 0 {
		q.Set(key, strconv.FormatInt(id, 10))
	}
}
