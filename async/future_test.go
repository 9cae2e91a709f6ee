package async

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// nodeify waits for the callback path of f and returns what it delivered.
func nodeify[T any](t *testing.T, f *Future[T]) (T, error) {
	t.Helper()
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	f.Nodeify(func(v T, err error) { ch <- result{v, err} })
	select {
	case r := <-ch:
		return r.v, r.err
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not invoked")
	}
	panic("unreachable")
}

func TestRun_FutureAndCallbackAgree(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := Run(context.Background(), func(context.Context) (string, error) {
			return "test", nil
		})

		cbValue, cbErr := nodeify(t, f)
		value, err := f.Result()

		require.NoError(t, err)
		assert.Equal(t, "test", value)
		assert.Equal(t, value, cbValue)
		assert.Equal(t, err, cbErr)
	})

	t.Run("failure", func(t *testing.T) {
		f := Run(context.Background(), func(context.Context) (int, error) {
			return 0, errBoom
		})

		cbValue, cbErr := nodeify(t, f)
		value, err := f.Result()

		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, err, cbErr)
		assert.Equal(t, value, cbValue)
	})
}

func TestRun_PanicBecomesError(t *testing.T) {
	f := Run(context.Background(), func(context.Context) (int, error) {
		panic("kaboom")
	})

	_, err := f.Result()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestReject_CallbackRunsImmediately(t *testing.T) {
	f := Reject[string](errBoom)

	called := false
	f.Nodeify(func(v string, err error) {
		called = true
		assert.Empty(t, v)
		assert.ErrorIs(t, err, errBoom)
	})
	assert.True(t, called, "callback on a settled future must run before Nodeify returns")

	select {
	case <-f.Done():
	default:
		t.Fatal("rejected future should be done")
	}
}

func TestNodeify_RegistrationOrder(t *testing.T) {
	release := make(chan struct{})
	f := Run(context.Background(), func(context.Context) (int, error) {
		<-release
		return 7, nil
	})

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		f.Nodeify(func(v int, err error) {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	close(release)
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestAwait_ContextTimeout(t *testing.T) {
	f := Run(context.Background(), func(context.Context) (int, error) {
		time.Sleep(time.Second)
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestThen(t *testing.T) {
	f := Then(Resolve(21), func(v int) (string, error) {
		return strconv.Itoa(v * 2), nil
	})
	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	called := false
	failed := Then(Reject[int](errBoom), func(v int) (string, error) {
		called = true
		return "", nil
	})
	_, err = failed.Result()
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, called)
}

func TestAll(t *testing.T) {
	ctx := context.Background()
	slow := Run(ctx, func(context.Context) (string, error) {
		time.Sleep(20 * time.Millisecond)
		return "first", nil
	})
	fast := Resolve("second")

	values, err := All(slow, fast).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, values)

	_, err = All(slow, Reject[string](errBoom)).Result()
	assert.ErrorIs(t, err, errBoom)

	empty, err := All[string]().Result()
	require.NoError(t, err)
	assert.Empty(t, empty)
}
