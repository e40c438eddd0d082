package container

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	value int
}

type testService struct {
	cfg *testConfig
}

func TestResolveSingletonReturnsSameInstance(t *testing.T) {
	c := New()

	var built int32
	err := c.RegisterSingleton("config", func() (any, error) {
		atomic.AddInt32(&built, 1)
		return &testConfig{value: 42}, nil
	})
	require.NoError(t, err)

	first, err := Resolve[*testConfig](c, "config")
	require.NoError(t, err)
	second, err := Resolve[*testConfig](c, "config")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&built))
	assert.Equal(t, 42, first.value)
}

func TestResolveTransientReturnsFreshInstances(t *testing.T) {
	c := New()

	require.NoError(t, c.RegisterTransient("config", func() (any, error) {
		return &testConfig{value: 1}, nil
	}))

	first, err := Resolve[*testConfig](c, "config")
	require.NoError(t, err)
	second, err := Resolve[*testConfig](c, "config")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
}

func TestResolveUnknownKey(t *testing.T) {
	c := New()

	_, err := c.Resolve("missing")
	assert.ErrorIs(t, err, ErrNotRegistered)

	v, ok := c.TryResolve("missing")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestResolveWrongType(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterInstance("config", &testConfig{value: 1}))

	_, err := Resolve[*testService](c, "config")
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestContainerFactoryReceivesResolvingContainer(t *testing.T) {
	c := New()

	require.NoError(t, c.RegisterInstance("config", &testConfig{value: 7}))

	var seen *Container
	require.NoError(t, c.RegisterSingletonWith("service", func(inner *Container) (any, error) {
		seen = inner
		cfg, err := Resolve[*testConfig](inner, "config")
		if err != nil {
			return nil, err
		}
		return &testService{cfg: cfg}, nil
	}))

	svc, err := Resolve[*testService](c, "service")
	require.NoError(t, err)

	assert.Same(t, c, seen)
	assert.Equal(t, 7, svc.cfg.value)
}

func TestAliasSharesLookupSpace(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterInstance("config", &testConfig{value: 3}, WithAlias("settings")))

	byKey, err := Resolve[*testConfig](c, "config")
	require.NoError(t, err)
	byAlias, err := Resolve[*testConfig](c, "settings")
	require.NoError(t, err)
	assert.Same(t, byKey, byAlias)

	err = c.RegisterInstance("settings", &testConfig{})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestDuplicateKeyRejected(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterInstance("config", &testConfig{}))
	assert.ErrorIs(t, c.RegisterInstance("config", &testConfig{}), ErrDuplicateKey)
}

func TestFactoryErrorPropagatesAndRetries(t *testing.T) {
	c := New()

	boom := errors.New("boom")
	var calls int32
	require.NoError(t, c.RegisterSingleton("flaky", func() (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, boom
		}
		return &testConfig{value: 9}, nil
	}))

	_, err := c.Resolve("flaky")
	assert.ErrorIs(t, err, boom)

	// The singleton stayed uncreated, so the next resolve retries.
	v, err := Resolve[*testConfig](c, "flaky")
	require.NoError(t, err)
	assert.Equal(t, 9, v.value)
}

func TestInitializeEagerAndIdempotent(t *testing.T) {
	c := New()

	var built int32
	require.NoError(t, c.RegisterSingleton("a", func() (any, error) {
		atomic.AddInt32(&built, 1)
		return &testConfig{value: 1}, nil
	}))
	require.NoError(t, c.RegisterTransient("t", func() (any, error) {
		t.Fatal("transient must not be built by Initialize")
		return nil, nil
	}))

	require.NoError(t, c.Initialize())
	assert.Equal(t, int32(1), atomic.LoadInt32(&built))

	require.NoError(t, c.Initialize())
	assert.Equal(t, int32(1), atomic.LoadInt32(&built))
}

func TestInitializeAggregatesFactoryFailures(t *testing.T) {
	c := New()

	boom := errors.New("boom")
	require.NoError(t, c.RegisterSingleton("bad", func() (any, error) {
		return nil, boom
	}))
	var built bool
	require.NoError(t, c.RegisterSingleton("good", func() (any, error) {
		built = true
		return &testConfig{}, nil
	}))

	err := c.Initialize()
	assert.ErrorIs(t, err, boom)
	assert.True(t, built, "one failing factory must not block the rest")
}

func TestCloseRunsCleanupsInReverseOrder(t *testing.T) {
	c := New()

	var order []string
	register := func(key string, fail bool) {
		require.NoError(t, c.RegisterSingleton(key, func() (any, error) {
			return &testConfig{}, nil
		}, WithCleanup(func(any) error {
			order = append(order, key)
			if fail {
				return errors.New(key + " failed")
			}
			return nil
		})))
	}
	register("first", false)
	register("second", true)
	register("third", false)

	require.NoError(t, c.Initialize())
	err := c.Close()

	assert.Error(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, order,
		"failing cleanup must not block earlier-registered cleanups")
}

func TestCloseSkipsUnrealizedSingletons(t *testing.T) {
	c := New()

	cleaned := false
	require.NoError(t, c.RegisterSingleton("lazy", func() (any, error) {
		return &testConfig{}, nil
	}, WithCleanup(func(any) error {
		cleaned = true
		return nil
	})))

	require.NoError(t, c.Close())
	assert.False(t, cleaned, "cleanup must only run for realized instances")
}

func TestCloseClearsInstancesAndInitializedFlag(t *testing.T) {
	c := New()

	var built int32
	require.NoError(t, c.RegisterSingleton("a", func() (any, error) {
		atomic.AddInt32(&built, 1)
		return &testConfig{}, nil
	}))

	require.NoError(t, c.Initialize())
	require.NoError(t, c.Close())

	// Re-initialization rebuilds the singleton from scratch.
	require.NoError(t, c.Initialize())
	assert.Equal(t, int32(2), atomic.LoadInt32(&built))
}

func TestResetClearsRegistrations(t *testing.T) {
	c := New()
	require.NoError(t, c.RegisterInstance("config", &testConfig{}))

	require.NoError(t, c.Reset())

	_, err := c.Resolve("config")
	assert.ErrorIs(t, err, ErrNotRegistered)
	assert.Empty(t, c.Keys())
}

func TestCleanupOnTransientRejected(t *testing.T) {
	c := New()
	err := c.RegisterTransient("t", func() (any, error) { return &testConfig{}, nil },
		WithCleanup(func(any) error { return nil }))
	assert.ErrorIs(t, err, ErrInvalidRegistration)
}

func TestConcurrentSingletonResolution(t *testing.T) {
	c := New()

	var built int32
	require.NoError(t, c.RegisterSingleton("config", func() (any, error) {
		atomic.AddInt32(&built, 1)
		return &testConfig{value: 42}, nil
	}))

	const callers = 10
	results := make([]*testConfig, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			v, err := Resolve[*testConfig](c, "config")
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&built), "factory must run exactly once")
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, 42, results[0].value)
}
