package assertions_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/syncstack/follower/shared/testutil/assert"
	"github.com/syncstack/follower/shared/testutil/assertions"
	"github.com/syncstack/follower/shared/testutil/require"
)

func TestAssert_Equal(t *testing.T) {
	tb := &assertions.TBMock{}
	assert.Equal(tb, 42, 42)
	if tb.ErrorfMsg != "" {
		t.Errorf("Unexpected failure: %v", tb.ErrorfMsg)
	}

	tb = &assertions.TBMock{}
	assert.Equal(tb, 42, 41)
	if !strings.Contains(tb.ErrorfMsg, "Values are not equal") {
		t.Errorf("Unexpected failure message: %v", tb.ErrorfMsg)
	}

	// Custom messages replace the default one.
	tb = &assertions.TBMock{}
	assert.Equal(tb, 42, 41, "custom %d", 7)
	if !strings.Contains(tb.ErrorfMsg, "custom 7") {
		t.Errorf("Unexpected failure message: %v", tb.ErrorfMsg)
	}
}

func TestAssert_DeepEqual(t *testing.T) {
	tb := &assertions.TBMock{}
	assert.DeepEqual(tb, []int{1, 2}, []int{1, 2})
	if tb.ErrorfMsg != "" {
		t.Errorf("Unexpected failure: %v", tb.ErrorfMsg)
	}

	tb = &assertions.TBMock{}
	assert.DeepEqual(tb, []int{1, 2}, []int{2, 1})
	if tb.ErrorfMsg == "" {
		t.Error("Expected a failure for unequal slices")
	}
}

func TestAssert_NoError(t *testing.T) {
	tb := &assertions.TBMock{}
	assert.NoError(tb, nil)
	if tb.ErrorfMsg != "" {
		t.Errorf("Unexpected failure: %v", tb.ErrorfMsg)
	}

	tb = &assertions.TBMock{}
	assert.NoError(tb, errors.New("failed"))
	if !strings.Contains(tb.ErrorfMsg, "failed") {
		t.Errorf("Unexpected failure message: %v", tb.ErrorfMsg)
	}
}

func TestAssert_ErrorContains(t *testing.T) {
	tb := &assertions.TBMock{}
	assert.ErrorContains(tb, "invalid", errors.New("this is invalid"))
	if tb.ErrorfMsg != "" {
		t.Errorf("Unexpected failure: %v", tb.ErrorfMsg)
	}

	tb = &assertions.TBMock{}
	assert.ErrorContains(tb, "invalid", errors.New("all good"))
	if !strings.Contains(tb.ErrorfMsg, "Expected error not returned") {
		t.Errorf("Unexpected failure message: %v", tb.ErrorfMsg)
	}

	tb = &assertions.TBMock{}
	assert.ErrorContains(tb, "invalid", nil)
	if tb.ErrorfMsg == "" {
		t.Error("Expected a failure for a nil error")
	}
}

func TestRequire_FailsViaFatalf(t *testing.T) {
	tb := &assertions.TBMock{}
	require.Equal(tb, 42, 41)
	if tb.FatalfMsg == "" {
		t.Error("Expected a fatal failure")
	}
	if tb.ErrorfMsg != "" {
		t.Errorf("Require must not use Errorf, got: %v", tb.ErrorfMsg)
	}
}

func TestAssert_NotNil(t *testing.T) {
	tb := &assertions.TBMock{}
	assert.NotNil(tb, struct{}{})
	if tb.ErrorfMsg != "" {
		t.Errorf("Unexpected failure: %v", tb.ErrorfMsg)
	}

	tb = &assertions.TBMock{}
	var nilPtr *int
	assert.NotNil(tb, nilPtr)
	if !strings.Contains(tb.ErrorfMsg, "Unexpected nil value") {
		t.Errorf("Unexpected failure message: %v", tb.ErrorfMsg)
	}
}
