package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoticePDFKeys(t *testing.T) {
	updated := time.Unix(1760000000, 0)
	assert.Equal(t, "notice:pdf:42:1760000000", NoticePDFKey(42, updated))
	assert.Equal(t, "notice:pdf:42:*", NoticePDFPattern(42))
}
