package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapMatchesBothSentinels(t *testing.T) {
	inner := errors.New("boom")
	err := Wrap(ErrPrecondition, inner)

	require.ErrorIs(t, err, ErrPrecondition)
	require.ErrorIs(t, err, inner)
	require.Equal(t, "boom", err.Error())

	require.Nil(t, Wrap(ErrPrecondition, nil))
}

func TestCategoryOf(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{Validationf("bad input"), ErrValidation},
		{NotFoundf("missing"), ErrNotFound},
		{AlreadyExistsf("dup"), ErrAlreadyExists},
		{Preconditionf("not yet"), ErrPrecondition},
		{Exhaustedf("spent"), ErrExhausted},
		{Fatalf("broken"), ErrFatal},
		{errors.New("unclassified"), ErrFatal},
		{fmt.Errorf("wrapped: %w", Validationf("inner")), ErrValidation},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, CategoryOf(tc.err), tc.err.Error())
	}
	require.Nil(t, CategoryOf(nil))
}
