// Package testing provides a contract test suite for state.Store
// implementations.
package testing

import (
	"context"
	"testing"
)

// StoreTestSuite tests the state.Store interface contract, not
// implementation details, so it runs unchanged against every backend.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &statetesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) state.Store { return mystore.New() },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func(t *testing.T) Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Bitmaps", suite.RunBitmapTests)
	t.Run("Parents", suite.RunParentTests)
	t.Run("DirBlocks", suite.RunDirBlockTests)
	t.Run("Geometry", suite.testGeometry)
	t.Run("Runs", suite.testRuns)
	t.Run("Healthcheck", suite.testHealthcheck)
}

func testContext() context.Context {
	return context.Background()
}
