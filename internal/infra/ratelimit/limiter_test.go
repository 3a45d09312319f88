package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/kitchenops/ragqa/internal/domain/rag"
)

func TestBaselineTierMultipliers(t *testing.T) {
	tier := BaselineTier("restaurant_management", "concepts_recipes")

	require.Equal(t, 2.0, tier("restaurant_management"))
	require.Equal(t, 0.5, tier("concepts_recipes"))
	require.Equal(t, 1.0, tier("kitchen_management"))
}

func TestAllowPrincipalExhaustsBurstThenDenies(t *testing.T) {
	limiter := NewLimiter(Config{BaselinePerHour: 1}, nil)

	allowed, _ := limiter.AllowPrincipal(context.Background(), 1, domain.AccessLevel("kitchen_management"))
	require.True(t, allowed)

	allowed, delay := limiter.AllowPrincipal(context.Background(), 1, domain.AccessLevel("kitchen_management"))
	require.False(t, allowed)
	require.Greater(t, delay.Seconds(), 0.0)
}

func TestAllowPrincipalTracksUsersIndependently(t *testing.T) {
	limiter := NewLimiter(Config{BaselinePerHour: 1}, nil)

	allowed1, _ := limiter.AllowPrincipal(context.Background(), 1, domain.AccessLevel("kitchen_management"))
	allowed2, _ := limiter.AllowPrincipal(context.Background(), 2, domain.AccessLevel("kitchen_management"))

	require.True(t, allowed1)
	require.True(t, allowed2)
}

func TestAllowProviderSharedAcrossPrincipals(t *testing.T) {
	limiter := NewLimiter(Config{ProviderPerSecond: 1}, nil)

	require.True(t, limiter.AllowProvider(context.Background(), "embedder"))
	require.True(t, limiter.AllowProvider(context.Background(), "embedder"))
	require.False(t, limiter.AllowProvider(context.Background(), "embedder"))
}

func TestNewLimiterAppliesDefaults(t *testing.T) {
	limiter := NewLimiter(Config{}, nil)

	require.Equal(t, 1000, limiter.cfg.BaselinePerHour)
	require.Equal(t, 5.0, limiter.cfg.ProviderPerSecond)
}
