package log

import (
	"bytes"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
)

func TestWithService(t *testing.T) {
	buf := &bytes.Buffer{}
	l := WithService(log.NewLogfmtLogger(buf), "processor")

	assert.NoError(t, l.Log("msg", "hello"))
	assert.Equal(t, "service=processor msg=hello\n", buf.String())
}
