package model

import (
	"sync"
	"testing"

	"github.com/YuminosukeSato/goboost/pkg/errors"
)

func TestStateManagerLifecycle(t *testing.T) {
	sm := NewStateManager()

	if sm.IsFitted() {
		t.Error("new StateManager reports fitted")
	}

	sm.SetDimensions(3, 100)
	sm.SetFitted()

	if !sm.IsFitted() {
		t.Error("StateManager not fitted after SetFitted")
	}
	nFeatures, nSamples := sm.GetDimensions()
	if nFeatures != 3 || nSamples != 100 {
		t.Errorf("dimensions = (%d, %d), want (3, 100)", nFeatures, nSamples)
	}

	sm.Reset()
	if sm.IsFitted() {
		t.Error("StateManager still fitted after Reset")
	}
	nFeatures, nSamples = sm.GetDimensions()
	if nFeatures != 0 || nSamples != 0 {
		t.Errorf("dimensions after Reset = (%d, %d), want (0, 0)", nFeatures, nSamples)
	}
}

func TestStateManagerRequireFitted(t *testing.T) {
	sm := NewStateManager()

	err := sm.RequireFitted("AdaBoostClassifier", "Predict")
	var notFitted *errors.NotFittedError
	if !errors.As(err, &notFitted) {
		t.Fatalf("error = %v, want NotFittedError", err)
	}
	if notFitted.ModelName != "AdaBoostClassifier" || notFitted.Method != "Predict" {
		t.Errorf("error context = %s/%s, want AdaBoostClassifier/Predict",
			notFitted.ModelName, notFitted.Method)
	}

	sm.SetFitted()
	if err := sm.RequireFitted("AdaBoostClassifier", "Predict"); err != nil {
		t.Errorf("unexpected error after SetFitted: %v", err)
	}
}

func TestStateManagerConcurrentReads(t *testing.T) {
	sm := NewStateManager()
	sm.SetDimensions(2, 10)
	sm.SetFitted()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !sm.IsFitted() {
					t.Error("fitted state lost during concurrent reads")
					return
				}
				sm.GetDimensions()
			}
		}()
	}
	wg.Wait()
}
