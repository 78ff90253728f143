package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyNamespacing(t *testing.T) {
	assert.Equal(t, "geovisor:boundary:http://example/REGIONS.topojson",
		Key("boundary", "http://example/REGIONS.topojson"))
	assert.Equal(t, "geovisor:locality:221005", Key("locality", "221005"))
}
