package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinates(t *testing.T) {
	values, err := parseCoordinates(" 10, 20", "x", "y")
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20}, values)

	values, err = parseCoordinates("1,2,3,4", "x1", "y1", "x2", "y2")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, values)

	_, err = parseCoordinates("10", "x", "y")
	assert.EqualError(t, err, "invalid coordinate format. Expected 'x,y', got '10'")

	_, err = parseCoordinates("10,abc", "x", "y")
	assert.EqualError(t, err, "invalid coordinate values. x, y must be integers. Got y='abc'")
}
