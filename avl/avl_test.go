package avl_test

import (
	"math/rand"
	"testing"

	"addrspace/avl"
	"github.com/stretchr/testify/require"
)

func intCmp(a, b int) int { return a - b }

func TestAddContainsRemove(t *testing.T) {
	tr := avl.New[int](intCmp)
	for _, v := range []int{5, 3, 8, 1, 4, 7, 9} {
		tr.Add(v)
	}
	require.Equal(t, 7, tr.Len())
	require.True(t, tr.Contains(4))
	require.False(t, tr.Contains(100))
	require.True(t, tr.CheckBalance())

	tr.Remove(3)
	require.False(t, tr.Contains(3))
	require.True(t, tr.CheckBalance())
	require.Equal(t, 6, tr.Len())
}

func TestOrderedQueries(t *testing.T) {
	tr := avl.New[int](intCmp)
	for _, v := range []int{10, 20, 30, 40} {
		tr.Add(v)
	}
	v, ok := tr.FindGE(20)
	require.True(t, ok)
	require.Equal(t, 20, v)

	v, ok = tr.FindGT(20)
	require.True(t, ok)
	require.Equal(t, 30, v)

	v, ok = tr.FindLE(25)
	require.True(t, ok)
	require.Equal(t, 20, v)

	v, ok = tr.FindLT(20)
	require.True(t, ok)
	require.Equal(t, 10, v)

	_, ok = tr.FindGT(40)
	require.False(t, ok)
}

func TestEnumerateInOrder(t *testing.T) {
	tr := avl.New[int](intCmp)
	for _, v := range []int{5, 1, 9, 3, 7} {
		tr.Add(v)
	}
	var got []int
	tr.Enumerate(func(v int) bool {
		got = append(got, v)
		return true
	})
	require.Equal(t, []int{1, 3, 5, 7, 9}, got)
}

func TestBalanceUnderRandomOps(t *testing.T) {
	tr := avl.New[int](intCmp)
	r := rand.New(rand.NewSource(1))
	present := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := r.Intn(500)
		if r.Intn(2) == 0 {
			tr.Add(v)
			present[v] = true
		} else {
			tr.Remove(v)
			delete(present, v)
		}
		require.True(t, tr.CheckBalance())
	}
	require.Equal(t, len(present), tr.Len())
}

func TestClear(t *testing.T) {
	tr := avl.New[int](intCmp)
	tr.Add(1)
	tr.Add(2)
	tr.Clear()
	require.Equal(t, 0, tr.Len())
	require.False(t, tr.Contains(1))
}
