package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestSetIfOnlyAppliesNonNilPointers(t *testing.T) {
	set := bson.M{}
	var status = JobUpdate{}
	assert.Nil(t, status.Status)

	n := 42
	setIf(set, "word_count", &n)
	setIf(set, "headings_count", (*int)(nil))

	assert.Equal(t, 42, set["word_count"])
	_, present := set["headings_count"]
	assert.False(t, present)
}

func TestNotFoundOrWrapPassesThroughNonMongoErrors(t *testing.T) {
	err := notFoundOrWrap(assert.AnError, "get job")
	assert.Error(t, err)
	assert.NotEqual(t, ErrNotFound, err)
}

func TestJobUpdateZeroValueProducesNoWrites(t *testing.T) {
	u := JobUpdate{}
	assert.Nil(t, u.Status)
	assert.Nil(t, u.StartedAt)
	assert.Nil(t, u.CompletedAt)
	assert.Nil(t, u.Children)
	assert.Zero(t, time.Time{})
}
