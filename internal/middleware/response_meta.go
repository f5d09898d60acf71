package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/elective-portal-api/pkg/middleware/requestid"
)

const responseMetaKey = "response_meta"

type responseMeta struct {
	start    time.Time
	cacheHit *bool
}

// WithResponseMeta starts the per-request metadata that list endpoints echo
// back under "meta".
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{start: time.Now()})
		c.Next()
	}
}

// SetCacheHit records whether the payload came from the catalog cache.
func SetCacheHit(c *gin.Context, hit bool) {
	if m := metaFrom(c); m != nil {
		m.cacheHit = &hit
	}
}

// ExtractMeta renders the metadata gathered so far. It returns nil when
// WithResponseMeta is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	m := metaFrom(c)
	if m == nil {
		return nil
	}
	out := map[string]interface{}{
		"processing_time_ms": time.Since(m.start).Milliseconds(),
	}
	if m.cacheHit != nil {
		out["cache_hit"] = *m.cacheHit
	}
	if id := requestid.Value(c); id != "" {
		out["request_id"] = id
	}
	return out
}

func metaFrom(c *gin.Context) *responseMeta {
	if c == nil {
		return nil
	}
	v, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	m, _ := v.(*responseMeta)
	return m
}
