package classifier_test

import (
	"testing"

	"github.com/benmeehan/s8-co2-bridge/internal/classifier"
	"github.com/benmeehan/s8-co2-bridge/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Boundaries(t *testing.T) {
	cases := []struct {
		ppm  int
		want string
	}{
		{0, classifier.Great},
		{400, classifier.Great},
		{450, classifier.Great},
		{451, classifier.Normal},
		{1000, classifier.Normal},
		{1001, classifier.Sleepy},
		{2000, classifier.Sleepy},
		{2001, classifier.Warning},
		{4999, classifier.Warning},
		{5000, classifier.Warning},
		{5001, classifier.Alert},
		{10000, classifier.Alert},
		{1 << 30, classifier.Alert},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, classifier.Classify(tc.ppm).Name, "ppm=%d", tc.ppm)
	}
}

func TestClassify_NegativeIsGreat(t *testing.T) {
	assert.Equal(t, classifier.Great, classifier.Classify(-5).Name)
}

// Every value in the sensor range must land in exactly one band.
func TestBands_PartitionSensorRange(t *testing.T) {
	bands := classifier.Bands()
	require.NotEmpty(t, bands)
	assert.Equal(t, 0, bands[0].Min)
	assert.True(t, bands[len(bands)-1].Unbounded)

	for i := 1; i < len(bands); i++ {
		assert.Equal(t, bands[i-1].Max+1, bands[i].Min, "gap or overlap before %s", bands[i].Name)
	}

	for ppm := 0; ppm <= constants.MaxReadingPPM+1000; ppm++ {
		matches := 0
		for _, b := range bands {
			if b.Contains(ppm) {
				matches++
			}
		}
		require.Equal(t, 1, matches, "ppm=%d", ppm)
		require.True(t, classifier.Classify(ppm).Contains(ppm), "ppm=%d", ppm)
	}
}

func TestClassify_IsPure(t *testing.T) {
	first := classifier.Classify(1200)
	second := classifier.Classify(1200)
	assert.Equal(t, first, second)

	// Mutating the returned table must not affect classification.
	bands := classifier.Bands()
	bands[0].Max = 10
	assert.Equal(t, classifier.Great, classifier.Classify(400).Name)
}

func TestIsAlerting(t *testing.T) {
	assert.False(t, classifier.IsAlerting(classifier.Classify(400)))
	assert.False(t, classifier.IsAlerting(classifier.Classify(900)))
	assert.False(t, classifier.IsAlerting(classifier.Classify(1500)))
	assert.True(t, classifier.IsAlerting(classifier.Classify(3000)))
	assert.True(t, classifier.IsAlerting(classifier.Classify(6000)))
}

func TestDetect(t *testing.T) {
	assert.Equal(t, constants.DetectionNormal, classifier.Detect(0))
	assert.Equal(t, constants.DetectionNormal, classifier.Detect(1000))
	assert.Equal(t, constants.DetectionAbnormal, classifier.Detect(1001))
	assert.Equal(t, constants.DetectionAbnormal, classifier.Detect(6000))
}
