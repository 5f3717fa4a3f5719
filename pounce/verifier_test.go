package pounce

import (
	"errors"
	"os"
	"testing"

	cerrors "gdb-pounce/errors"
	"gdb-pounce/utils"
)

// classify is exercised against the test process itself: its /proc
// entries are the same surface the verifier reads for real targets.

func selfSpec(t *testing.T) (*MatchSpec, []string) {
	t.Helper()
	base, err := utils.ExeBasename(os.Getpid())
	if err != nil {
		t.Fatalf("ExeBasename(self): %v", err)
	}
	argv, err := utils.Cmdline(os.Getpid())
	if err != nil {
		t.Fatalf("Cmdline(self): %v", err)
	}
	if len(argv) == 0 {
		t.Fatal("empty cmdline for self")
	}
	return &MatchSpec{ExeBasename: base}, argv
}

func TestClassify_Match(t *testing.T) {
	spec, _ := selfSpec(t)
	if v, err := classify(spec, os.Getpid()); v != verdictMatch || err != nil {
		t.Errorf("classify(self) = %v, %v; want match", v, err)
	}
}

func TestClassify_MatchWithArgvSuffix(t *testing.T) {
	spec, argv := selfSpec(t)
	spec.ArgvSuffix = argv[len(argv)-1:]
	if v, err := classify(spec, os.Getpid()); v != verdictMatch || err != nil {
		t.Errorf("classify(self, real suffix) = %v, %v; want match", v, err)
	}
}

func TestClassify_ArgvMismatchReportsCoarseFamily(t *testing.T) {
	spec, _ := selfSpec(t)
	spec.ArgvSuffix = []string{"definitely-not-in-argv-quux"}
	if v, _ := classify(spec, os.Getpid()); v != verdictArgvMismatch {
		t.Errorf("classify(self, bogus suffix) = %v, want argv mismatch", v)
	}
}

func TestClassify_ExeMismatch(t *testing.T) {
	spec, _ := selfSpec(t)
	spec.ExeBasename = "some-other-binary"
	if v, _ := classify(spec, os.Getpid()); v != verdictExeMismatch {
		t.Errorf("classify(self, wrong basename) = %v, want exe mismatch", v)
	}
}

func TestClassify_ArgvCheckedBeforeExe(t *testing.T) {
	// When both predicates fail the argv family wins the attribution, so
	// the status line blames the kernel-stage predicate set.
	spec, _ := selfSpec(t)
	spec.ExeBasename = "some-other-binary"
	spec.ArgvSuffix = []string{"definitely-not-in-argv-quux"}
	if v, _ := classify(spec, os.Getpid()); v != verdictArgvMismatch {
		t.Errorf("classify(self, both wrong) = %v, want argv mismatch", v)
	}
}

func TestClassify_TargetGone(t *testing.T) {
	spec, _ := selfSpec(t)
	// Far above any configurable pid_max.
	v, err := classify(spec, 1<<30)
	if v != verdictGone {
		t.Fatalf("classify(nonexistent pid) = %v, want gone", v)
	}
	if !errors.Is(err, cerrors.ErrTargetGone) {
		t.Errorf("gone error = %v, want ErrTargetGone", err)
	}
	if cerrors.Fatal(err) {
		t.Errorf("a vanished target must not stop the engine: %v", err)
	}
}
