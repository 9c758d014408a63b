package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProxyManager(t *testing.T) {
	pm := NewProxyManager([]string{"10.0.0.1:3128", "", "ftp://bad", "https://10.0.0.2:443"}, "", nil)

	assert.True(t, pm.HasProxies())
	assert.Equal(t, defaultUserAgent, pm.GetUserAgent())

	p, err := pm.GetCurrentProxy()
	assert.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:3128", p)

	pm.RotateProxy()
	p, _ = pm.GetCurrentProxy()
	assert.Equal(t, "https://10.0.0.2:443", p)

	pm.RotateProxy()
	p, _ = pm.GetCurrentProxy()
	assert.Equal(t, "http://10.0.0.1:3128", p)
}

func TestProxyManager_Empty(t *testing.T) {
	pm := NewProxyManager(nil, "ua/1", nil)
	assert.False(t, pm.HasProxies())
	pm.RotateProxy()
	p, err := pm.GetCurrentProxy()
	assert.NoError(t, err)
	assert.Empty(t, p)
	assert.Equal(t, "ua/1", pm.GetUserAgent())
}
