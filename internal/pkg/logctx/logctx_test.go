package logctx

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrom_DefaultWhenMissing(t *testing.T) {
	require.Same(t, slog.Default(), From(context.Background()))
}

func TestInto_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := Into(context.Background(), l)

	From(ctx).Info("hello")
	require.Contains(t, buf.String(), "hello")
}

func TestMaskPhone(t *testing.T) {
	require.Equal(t, "01*******78", MaskPhone("01712345678"))
	require.Equal(t, "****", MaskPhone("0171"))
	require.Equal(t, "****", MaskPhone(""))
}
