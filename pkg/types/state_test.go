package types

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchStateFirstMatchWins(t *testing.T) {
	s := NewSearchState("1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH")
	require.False(t, s.Found())
	require.Nil(t, s.Result())

	const racers = 32
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if s.MarkFound(&Result{WorkerID: id}) {
				mu.Lock()
				wins = append(wins, id)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, wins, 1, "exactly one worker may win")
	assert.True(t, s.Found())
	assert.True(t, s.ShouldStop())
	require.NotNil(t, s.Result())
	assert.Equal(t, wins[0], s.Result().WorkerID)
}

func TestSearchStateCounting(t *testing.T) {
	s := NewSearchState("x")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.AddTested(1000)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(8*100*1000), s.Tested())
}

func TestSearchStateStop(t *testing.T) {
	s := NewSearchState("x")
	assert.False(t, s.ShouldStop())

	s.Stop()
	assert.True(t, s.Stopped())
	assert.True(t, s.ShouldStop())
	assert.False(t, s.Found(), "stopping is not a match")
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: Sequential},
		{in: "Exhaustive", want: Sequential},
		{in: "random", want: Random},
		{in: "bogus", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
		})
	}
}
