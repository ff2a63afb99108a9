package notify

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf)

	Success(n, "发布成功")
	Error(n, "删除失败")
	Error(n, "")

	assert.Equal(t, "发布成功\n✗ 删除失败\n", buf.String())
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	_, ok := r.Last()
	assert.False(t, ok)

	Error(r, "评论失败，请重试")
	Error(nil, "ignored")

	last, ok := r.Last()
	assert.True(t, ok)
	assert.Equal(t, Message{Level: LevelError, Message: "评论失败，请重试"}, last)
	assert.Len(t, r.Messages(), 1)
}
