package sessions

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	store := NewStore()

	first, created := store.GetOrCreate("CA123")
	require.True(t, created)

	second, created := store.GetOrCreate("CA123")
	require.False(t, created)
	assert.Same(t, first, second)
}

func TestGetOrCreateIsAtomicUnderConcurrency(t *testing.T) {
	store := NewStore()

	const goroutines = 50
	results := make([]*Session, goroutines)
	createdCount := 0
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, created := store.GetOrCreate("CA123")
			mu.Lock()
			results[i] = sess
			if created {
				createdCount++
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount, "exactly one goroutine should create the session")
	for i := 1; i < goroutines; i++ {
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, 1, store.Len())
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := NewStore()
	store.GetOrCreate("CA123")

	store.Delete("CA123")
	store.Delete("CA123")

	_, ok := store.Get("CA123")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestPutReplacesSession(t *testing.T) {
	store := NewStore()
	original, _ := store.GetOrCreate("CA123")

	replacement := newSession("CA123")
	store.Put("CA123", replacement)

	got, ok := store.Get("CA123")
	require.True(t, ok)
	assert.Same(t, replacement, got)
	assert.NotSame(t, original, got)
}

func TestTranscriptPreservesArrivalOrder(t *testing.T) {
	sess := newSession("CA123")

	sess.AppendUtterance(SpeakerUser, "Hello")
	sess.AppendUtterance(SpeakerAgent, "Hi, how can I help?")
	sess.AppendUtterance(SpeakerUser, "What are your opening hours?")

	want := "User: Hello\nAgent: Hi, how can I help?\nUser: What are your opening hours?\n"
	assert.Equal(t, want, sess.Transcript())
}

func TestTranscriptOrderUnderInterleavedWriters(t *testing.T) {
	sess := newSession("CA123")

	const lines = 100
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < lines; i++ {
			sess.AppendUtterance(SpeakerUser, fmt.Sprintf("line %d", i))
		}
	}()
	wg.Wait()

	transcript := sess.Transcript()
	assert.Contains(t, transcript, "User: line 0\n")
	assert.Contains(t, transcript, fmt.Sprintf("User: line %d\n", lines-1))
}

func TestMergeClientInfoExistingKeysWin(t *testing.T) {
	sess := newSession("CA123")

	sess.MergeClientInfo(map[string]string{"Name": "Ann", "AccountId": "12345"})
	sess.MergeClientInfo(map[string]string{"Name": "Bob", "Source": "stream"})

	info := sess.ClientInfo()
	assert.Equal(t, "Ann", info["Name"], "initiation-time info must not be overwritten")
	assert.Equal(t, "12345", info["AccountId"])
	assert.Equal(t, "stream", info["Source"])
}

func TestClientInfoReturnsCopy(t *testing.T) {
	sess := newSession("CA123")
	sess.MergeClientInfo(map[string]string{"Name": "Ann"})

	info := sess.ClientInfo()
	info["Name"] = "mutated"

	assert.Equal(t, "Ann", sess.ClientInfo()["Name"])
}

func TestFinalizeRunsAtMostOnce(t *testing.T) {
	sess := newSession("CA123")

	runs := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Finalize(func() {
				mu.Lock()
				runs++
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, runs)
}
