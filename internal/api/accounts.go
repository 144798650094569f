package api

import (
	"context"
	"strconv"

	"github.com/tumioparbe/web/internal/model"
)

// ProfileUpdate carries the profile fields to change; empty fields are left out.
type ProfileUpdate struct {
	Name            string `json:"name,omitempty"`
	Address         string `json:"address,omitempty"`
	FacebookProfile string `json:"facebook_profile,omitempty"`
	Email           string `json:"email,omitempty"`
}

// StudentInput is the writable part of a Student
type StudentInput struct {
	Name         string `json:"name,omitempty"`
	DateOfBirth  string `json:"date_of_birth,omitempty"`
	School       string `json:"school,omitempty"`
	CurrentClass string `json:"current_class,omitempty"`
	FatherName   string `json:"father_name,omitempty"`
	MotherName   string `json:"mother_name,omitempty"`
}

func (c *Client) GetProfile(ctx context.Context) (model.User, error) {
	var out model.User
	err := c.get(ctx, "/accounts/profile/", nil, &out)
	return out, err
}

func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (model.User, error) {
	var out model.User
	err := c.put(ctx, "/accounts/profile/", upd, &out)
	return out, err
}

func (c *Client) GetStudents(ctx context.Context) (model.Paginated[model.Student], error) {
	var out model.Paginated[model.Student]
	err := c.get(ctx, "/accounts/students/", nil, &out)
	return out, err
}

func (c *Client) AddStudent(ctx context.Context, in StudentInput) (model.Student, error) {
	var out model.Student
	err := c.post(ctx, "/accounts/students/", in, &out)
	return out, err
}

func (c *Client) GetStudent(ctx context.Context, id int64) (model.Student, error) {
	var out model.Student
	err := c.get(ctx, "/accounts/students/"+strconv.FormatInt(id, 10)+"/", nil, &out)
	return out, err
}

func (c *Client) UpdateStudent(ctx context.Context, id int64, in StudentInput) (model.Student, error) {
	var out model.Student
	err := c.put(ctx, "/accounts/students/"+strconv.FormatInt(id, 10)+"/", in, &out)
	return out, err
}
