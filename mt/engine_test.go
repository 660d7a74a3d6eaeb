package mt

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_TranslatePrimary(t *testing.T) {
	primary := NewStubProvider(StubProviderConfig{
		Translations: map[string]map[string]string{
			"en-es": {"Hello world": "Hola mundo"},
		},
	})
	engine := NewEngine(primary, nil, nil)

	out, err := engine.Translate(context.Background(), "Hello world", "en", "es")
	require.NoError(t, err)
	assert.Equal(t, "Hola mundo", out)
	assert.EqualValues(t, 1, primary.ProvisionCalls())
}

func TestEngine_WarmCacheSkipsProvisioning(t *testing.T) {
	primary := NewStubProvider(StubProviderConfig{})
	engine := NewEngine(primary, nil, nil)

	for _i := 0; _i < 5; _i++ {
		_, err := engine.Translate(context.Background(), "hello", "en", "es")
		require.NoError(t, err)
	}

	assert.EqualValues(t, 1, primary.ProvisionCalls(), "warm cache must not re-provision")
	assert.EqualValues(t, 5, primary.TranslateCalls())
}

func TestEngine_PairKeyNormalization(t *testing.T) {
	primary := NewStubProvider(StubProviderConfig{})
	engine := NewEngine(primary, nil, nil)

	_, err := engine.Translate(context.Background(), "hello", "EN", "Es")
	require.NoError(t, err)
	_, err = engine.Translate(context.Background(), "hello", "en", "es")
	require.NoError(t, err)
	_, err = engine.Translate(context.Background(), "hello", " en ", "ES")
	require.NoError(t, err)

	assert.EqualValues(t, 1, primary.ProvisionCalls(),
		"case variants of a pair must share one cache entry")
	assert.Len(t, engine.Status().CachedPairs, 1)
}

func TestEngine_SingleFlightProvisioning(t *testing.T) {
	release := make(chan struct{})
	primary := NewStubProvider(StubProviderConfig{ProvisionDelay: release})
	engine := NewEngine(primary, nil, nil)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = engine.Translate(context.Background(), "hello", "en", "es")
		}()
	}

	// One receive unblocks the single in-flight Provision call; every other
	// caller must be waiting on it rather than provisioning on their own.
	release <- struct{}{}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	assert.EqualValues(t, 1, primary.ProvisionCalls(),
		"concurrent first uses must provision exactly once")
}

func TestEngine_FallbackOnPrimaryFailure(t *testing.T) {
	tests := []struct {
		name    string
		primary StubProviderConfig
	}{
		{
			name:    "primary provisioning fails",
			primary: StubProviderConfig{ProvisionErr: errors.New("weights missing")},
		},
		{
			name:    "primary inference fails",
			primary: StubProviderConfig{TranslateErr: errors.New("inference crashed")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := NewStubProvider(tt.primary)
			fallback := NewStubProvider(StubProviderConfig{
				Name: "fallback",
				Translations: map[string]map[string]string{
					"en-es": {"hello": "hola"},
				},
			})
			engine := NewEngine(primary, fallback, nil)

			out, err := engine.Translate(context.Background(), "hello", "en", "es")
			require.NoError(t, err)
			assert.Equal(t, "hola", out)
			assert.EqualValues(t, 1, fallback.ProvisionCalls())
		})
	}
}

func TestEngine_FallbackReadinessCachedOnce(t *testing.T) {
	primary := NewStubProvider(StubProviderConfig{ProvisionErr: errors.New("primary down")})
	fallback := NewStubProvider(StubProviderConfig{Name: "fallback"})
	engine := NewEngine(primary, fallback, nil)

	for _i := 0; _i < 3; _i++ {
		_, err := engine.Translate(context.Background(), "hello", "en", "es")
		require.NoError(t, err)
	}

	assert.EqualValues(t, 1, fallback.ProvisionCalls(),
		"fallback readiness probe must run once per pair")
	assert.True(t, engine.Status().FallbackReady["en-es"])
}

func TestEngine_NegativeFallbackProbeCached(t *testing.T) {
	primary := NewStubProvider(StubProviderConfig{ProvisionErr: errors.New("primary down")})
	fallback := NewStubProvider(StubProviderConfig{
		Name:         "fallback",
		ProvisionErr: errors.New("pair not served"),
	})
	engine := NewEngine(primary, fallback, nil)

	for _i := 0; _i < 3; _i++ {
		_, err := engine.Translate(context.Background(), "hello", "en", "es")
		require.Error(t, err)

		var unavailable *UnavailableError
		require.ErrorAs(t, err, &unavailable)
		assert.ErrorContains(t, unavailable.Primary, "primary down")
		assert.ErrorContains(t, unavailable.Fallback, "pair not served")
	}

	assert.EqualValues(t, 1, fallback.ProvisionCalls(),
		"an unavailable pair must not be re-probed on every request")
	assert.False(t, engine.Status().FallbackReady["en-es"])
}

func TestEngine_BothPathsFail(t *testing.T) {
	primary := NewStubProvider(StubProviderConfig{TranslateErr: errors.New("primary inference failed")})
	fallback := NewStubProvider(StubProviderConfig{
		Name:         "fallback",
		TranslateErr: errors.New("fallback inference failed"),
	})
	engine := NewEngine(primary, fallback, nil)

	out, err := engine.Translate(context.Background(), "hello", "en", "es")
	assert.Empty(t, out, "a failed translation must never return stale text")

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, NewPair("en", "es"), unavailable.Pair)
	assert.ErrorContains(t, unavailable.Primary, "primary inference failed")
	assert.ErrorContains(t, unavailable.Fallback, "fallback inference failed")
}

func TestEngine_NoFallbackConfigured(t *testing.T) {
	primary := NewStubProvider(StubProviderConfig{ProvisionErr: errors.New("primary down")})
	engine := NewEngine(primary, nil, nil)

	_, err := engine.Translate(context.Background(), "hello", "en", "es")

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.ErrorIs(t, unavailable.Fallback, ErrNoFallback)
}

func TestEngine_IndependentPairs(t *testing.T) {
	primary := NewStubProvider(StubProviderConfig{})
	engine := NewEngine(primary, nil, nil)

	_, err := engine.Translate(context.Background(), "hello", "en", "es")
	require.NoError(t, err)
	_, err = engine.Translate(context.Background(), "hello", "en", "fr")
	require.NoError(t, err)

	assert.EqualValues(t, 2, primary.ProvisionCalls())
	assert.ElementsMatch(t,
		[]Pair{{Source: "en", Target: "es"}, {Source: "en", Target: "fr"}},
		primary.ProvisionedPairs())
}
