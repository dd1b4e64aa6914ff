package errors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendNil(t *testing.T) {
	err := New("error")
	errs := Append(nil, err).sliceNoCopy()
	require.Len(t, errs, 1)
	require.Equal(t, err, errs[0])

	errs = Append(errorSlice([]error{err}), nil).sliceNoCopy()
	require.Len(t, errs, 1)
	require.Equal(t, err, errs[0])

	require.Nil(t, Append(nil, nil))
}

func TestAppendMultiMulti(t *testing.T) {
	err0 := New("error0")
	err1 := New("error1")
	err2 := New("error2")

	var errs01 Errors
	errs01 = Append(errs01, err0)
	errs01 = Append(errs01, err1)
	var errs2 Errors
	errs2 = Append(errs2, err2)

	errs := Append(errs01, errs2).sliceNoCopy()
	require.Equal(t, []error{err0, err1, err2}, errs)
	require.Equal(t, "error0\nerror1\nerror2", Append(errs01, errs2).Error())
}

func TestCombine(t *testing.T) {
	err0 := New("error0")
	err1 := New("error1")
	err2 := New("error2")

	require.Equal(t, err0, Combine(err0, nil))
	require.Equal(t, err0, Combine(nil, err0))

	errs := Combine(err0, err1).(Errors)
	require.Equal(t, 2, errs.Len())

	first := Combine(errs, err2).(Errors).sliceNoCopy()
	require.Len(t, first, 3)
	ref := &first[2]

	// a second combine on the same base must not overwrite the first
	Combine(errs, New("other"))
	require.Equal(t, err2, *ref)
}

func TestWrapf(t *testing.T) {
	base := New("bad jump")
	err := Wrapf(base, "validating %s", "f")
	require.Equal(t, "validating f: bad jump", err.Error())
	require.Equal(t, base, Cause(err))

	require.Nil(t, WrapfOrNil(nil, "ignored"))
	require.EqualError(t, Wrapf(nil, "fresh %d", 1), "fresh 1")
}
