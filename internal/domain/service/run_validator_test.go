package service

import (
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/bench-history/internal/domain/entity"
	"github.com/dreschagin/bench-history/internal/domain/valueobject"
)

func TestRunValidator_Valid(t *testing.T) {
	validator := NewRunValidator()
	record := buildRun(t,
		measurement(t, "test_add", 100, "iter/sec"),
		measurement(t, "test_query", 200, "iter/sec"),
	)

	if err := validator.Validate(record); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestRunValidator_NilRecord(t *testing.T) {
	validator := NewRunValidator()

	if err := validator.Validate(nil); err == nil {
		t.Fatalf("expected error for nil record")
	}
}

func TestRunValidator_FutureRecordedAt(t *testing.T) {
	validator := NewRunValidator()

	commit, err := valueobject.NewCommit("abc1234", "msg", time.Now(), "")
	if err != nil {
		t.Fatalf("NewCommit() error = %v", err)
	}

	// Небольшой clock skew допустим
	nearFuture, err := entity.NewRunRecord("suite", commit, valueobject.CPUInfo{},
		time.Now().Add(time.Minute), []valueobject.Measurement{measurement(t, "test_add", 1, "iter/sec")})
	if err != nil {
		t.Fatalf("NewRunRecord() error = %v", err)
	}
	if err := validator.Validate(nearFuture); err != nil {
		t.Fatalf("Validate() rejected run within clock skew: %v", err)
	}

	farFuture, err := entity.NewRunRecord("suite", commit, valueobject.CPUInfo{},
		time.Now().Add(time.Hour), []valueobject.Measurement{measurement(t, "test_add", 1, "iter/sec")})
	if err != nil {
		t.Fatalf("NewRunRecord() error = %v", err)
	}
	if err := validator.Validate(farFuture); err == nil {
		t.Fatalf("Validate() accepted run recorded an hour in the future")
	}
}

func TestRunValidator_DuplicateMeasurements(t *testing.T) {
	validator := NewRunValidator()
	record := buildRun(t,
		measurement(t, "test_add", 100, "iter/sec"),
		measurement(t, "test_add", 120, "iter/sec"),
	)

	err := validator.Validate(record)
	if err == nil {
		t.Fatalf("expected error for duplicate measurement names")
	}
	if !strings.Contains(err.Error(), "duplicate measurement name") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunValidator_ValidateBatch(t *testing.T) {
	validator := NewRunValidator()

	good := buildRun(t, measurement(t, "test_add", 100, "iter/sec"))
	bad := buildRun(t,
		measurement(t, "test_dup", 1, "iter/sec"),
		measurement(t, "test_dup", 2, "iter/sec"),
	)

	errs := validator.ValidateBatch([]*entity.RunRecord{good, bad})
	if len(errs) != 1 {
		t.Fatalf("ValidateBatch() returned %d errors, want 1", len(errs))
	}
	if !strings.Contains(errs[0].Error(), "record 1") {
		t.Fatalf("error should reference failing index: %v", errs[0])
	}
}
