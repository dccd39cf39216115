package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "popforest: Fit: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Predict",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "popforest: Predict: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 10, 12, 1)

	want := "popforest: Predict: dimension mismatch on axis 1 (features). Expected 10, got 12"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("RandomForestRegressor", "Predict")

	want := "popforest: RandomForestRegressor: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewFileNotFoundError(t *testing.T) {
	err := NewFileNotFoundError("clean", "data/spotify_songs.csv")

	want := "popforest: clean: input file not found: data/spotify_songs.csv"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	wrapped := Wrap(err, "stage failed")
	var fnf *FileNotFoundError
	if !As(wrapped, &fnf) {
		t.Fatal("wrapped error should still be a *FileNotFoundError")
	}
	if fnf.Path != "data/spotify_songs.csv" {
		t.Errorf("Path = %q", fnf.Path)
	}
}

func TestNewColumnNotFoundError(t *testing.T) {
	err := NewColumnNotFoundError("tempo")
	if err.Error() != `popforest: column "tempo" not found` {
		t.Errorf("Error() = %v", err.Error())
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("test_size", "must be in (0, 1)", 1.5)
	want := "popforest: validation failed for parameter 'test_size': must be in (0, 1) (got: 1.5)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestNumericalInstability(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7}
	if err := CheckNumericalStability("ok", values, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	values[6] = nanValue()
	err := CheckNumericalStability("train_input", values, 3)
	if err == nil {
		t.Fatal("expected instability error")
	}
	if !strings.Contains(err.Error(), "...") {
		t.Errorf("long value lists should be truncated: %v", err)
	}

	var numErr *NumericalInstabilityError
	if !As(err, &numErr) || numErr.Iteration != 3 {
		t.Errorf("expected NumericalInstabilityError at index 3, got %v", err)
	}
}

func TestUndefinedMetricWarning(t *testing.T) {
	var got error
	SetWarningHandler(func(w error) { got = w })
	defer SetWarningHandler(func(w error) {})

	Warn(NewUndefinedMetricWarning("r2", "constant y_true", 0))
	if got == nil {
		t.Fatal("warning handler was not called")
	}
	if !strings.Contains(got.Error(), "'r2' is ill-defined") {
		t.Errorf("unexpected warning text: %v", got)
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrEmptyData, "reading frame")
	if !Is(wrapped, ErrEmptyData) {
		t.Error("Is should see through Wrap")
	}
	if !strings.HasPrefix(wrapped.Error(), "reading frame") {
		t.Errorf("unexpected message: %v", wrapped)
	}
}

func TestWrapf(t *testing.T) {
	err := Wrapf(New("boom"), "stage %s", "train")
	if err.Error() != "stage train: boom" {
		t.Errorf("Wrapf() = %v", err)
	}
}
