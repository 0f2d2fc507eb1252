package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyProjectionFastPathSafeKeys(t *testing.T) {
	op := NewOperationPlan()
	root := op.RootLayer()
	row := map[string]any{"id": 1, "name": "ava", "secret": "nope"}
	src, _ := op.AddStep(NewConstantStep(root, row))
	kp := NewKeyProjectionStep(root, src, []string{"id", "name"})

	result := kp.ExecuteOne([]any{row}, ExecutionExtra{Context: context.Background()})
	require.NoError(t, result.Err)
	got := result.Value.(map[string]any)
	require.Equal(t, map[string]any{"id": 1, "name": "ava"}, got)
}

func TestKeyProjectionSlowPathRejectsUnsafeKeys(t *testing.T) {
	row := map[string]any{"__proto__": "evil", "id": 1}
	kp := NewKeyProjectionStep(nil, InvalidStepID, []string{"__proto__", "id"})
	require.False(t, kp.allSafe)

	result := kp.ExecuteOne([]any{row}, ExecutionExtra{})
	got := result.Value.(map[string]any)
	require.NotContains(t, got, "__proto__")
	require.Equal(t, 1, got["id"])
}

func TestIsUnsafeIdentifier(t *testing.T) {
	cases := map[string]bool{
		"id":         false,
		"name":       false,
		"__typename": true,
		"__proto__":  true,
		"constructor": true,
		"prototype":  true,
	}
	for key, want := range cases {
		require.Equal(t, want, isUnsafeIdentifier(key), key)
	}
}
