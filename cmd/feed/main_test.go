package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"momentfeed/internal/apperrors"
	"momentfeed/internal/feed"
	"momentfeed/internal/models"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "feed version "+Version+"\n", out.String())
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"0", "-3", "abc"} {
		_, err := parseID(raw)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTarget, raw)
	}
}

func TestPrintPost(t *testing.T) {
	var out bytes.Buffer
	printPost(&out, feed.PostView{Post: models.Post{
		ID:              7,
		Author:          models.Author{Name: "张三", Verified: true},
		TextContent:     "你好",
		Images:          []string{"https://img/a.png"},
		Layout:          models.LayoutLarge,
		LikeCount:       3,
		CreatedAgoLabel: "2小时前",
		Location:        "赣州市",
	}}, true)

	assert.Equal(t, "#7 张三 · 2小时前 ✓ · 赣州市 [可删除]\n  你好\n  [large] https://img/a.png\n  ♥ 3  💬 0  ↗ 0\n\n", out.String())
}

func TestCommandsRequireArguments(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"delete"})

	assert.Error(t, cmd.Execute())
}
