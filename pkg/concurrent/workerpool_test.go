// Copyright The GroupCal Authors.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_Run(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(2)

	var counter int64
	functions := []func() error{
		func() error {
			atomic.AddInt64(&counter, 1)
			time.Sleep(10 * time.Millisecond)
			return nil
		},
		func() error {
			atomic.AddInt64(&counter, 2)
			time.Sleep(10 * time.Millisecond)
			return nil
		},
		func() error {
			atomic.AddInt64(&counter, 3)
			time.Sleep(10 * time.Millisecond)
			return nil
		},
	}

	err := pool.Run(ctx, functions...)
	require.NoError(t, err)
	assert.Equal(t, int64(6), atomic.LoadInt64(&counter))
}

func TestWorkerPool_Run_WithError(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(2)

	var executedFunc1, executedFunc2, executedFunc3 bool
	var mu sync.Mutex

	expectedError := errors.New("delivery failed")
	functions := []func() error{
		func() error {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			executedFunc1 = true
			mu.Unlock()
			return nil
		},
		func() error {
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			executedFunc2 = true
			mu.Unlock()
			return expectedError
		},
		func() error {
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			executedFunc3 = true
			mu.Unlock()
			return nil
		},
	}

	err := pool.Run(ctx, functions...)
	require.Error(t, err)
	assert.Equal(t, expectedError, err)

	assert.True(t, executedFunc1, "function 1 should have executed")
	assert.True(t, executedFunc2, "function 2 should have executed")
	assert.False(t, executedFunc3, "function 3 should not have executed after cancellation")
}

func TestWorkerPool_Run_EmptyFunctions(t *testing.T) {
	err := NewWorkerPool(2).Run(context.Background())
	require.NoError(t, err)
}

func TestWorkerPool_RunAll_ContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(2)

	var executed int64
	errorFunc1 := errors.New("recipient one failed")
	errorFunc3 := errors.New("recipient three failed")

	functions := []func() error{
		func() error {
			atomic.AddInt64(&executed, 1)
			return errorFunc1
		},
		func() error {
			atomic.AddInt64(&executed, 1)
			return nil
		},
		func() error {
			atomic.AddInt64(&executed, 1)
			return errorFunc3
		},
	}

	errs := pool.RunAll(ctx, functions...)

	assert.Equal(t, int64(3), atomic.LoadInt64(&executed), "all functions must run despite failures")
	require.Len(t, errs, 2)
	assert.Contains(t, errs, errorFunc1)
	assert.Contains(t, errs, errorFunc3)
}

func TestWorkerPool_RunAll_EmptyFunctions(t *testing.T) {
	errs := NewWorkerPool(2).RunAll(context.Background())
	assert.Nil(t, errs)
}

func TestWorkerPool_RunAll_AllSucceed(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(3)

	var counter int64
	functions := []func() error{
		func() error {
			atomic.AddInt64(&counter, 1)
			return nil
		},
		func() error {
			atomic.AddInt64(&counter, 1)
			return nil
		},
		func() error {
			atomic.AddInt64(&counter, 1)
			return nil
		},
	}

	errs := pool.RunAll(ctx, functions...)

	assert.Equal(t, int64(3), atomic.LoadInt64(&counter))
	assert.Empty(t, errs)
}

func TestWorkerPool_Run_WithCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(2)
	cancel()

	err := pool.Run(ctx, func() error { return nil })
	require.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}

func TestWorkerPool_RunAll_WithCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkerPool(2)
	cancel()

	errs := pool.RunAll(ctx, func() error { return nil })

	require.Len(t, errs, 1)
	assert.Equal(t, context.Canceled, errs[0])
}

func TestNewWorkerPool_InvalidCount(t *testing.T) {
	pool := NewWorkerPool(0)
	err := pool.Run(context.Background(), func() error { return nil })
	require.NoError(t, err)
}
