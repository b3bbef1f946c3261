package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func drain(s Strategy[int]) []int {
	var out []int
	for s.HasNext() {
		v, _ := s.Pop()
		out = append(out, v)
	}
	return out
}

func Test_DFS(t *testing.T) {
	s := NewDFS[int]()
	assert.Nil(t, s.Push(1, 2))
	assert.Nil(t, s.Push(3))
	assert.Equal(t, 3, s.Size())
	assert.Equal(t, []int{3, 1, 2}, drain(s))
	_, err := s.Pop()
	assert.Equal(t, ErrEmpty, err)
}

func Test_BFS(t *testing.T) {
	s := NewBFS[int]()
	assert.Nil(t, s.Push(1, 2))
	assert.Nil(t, s.Push(3))
	assert.Equal(t, []int{1, 2, 3}, drain(s))
	_, err := s.Pop()
	assert.Equal(t, ErrEmpty, err)
}

func Test_New(t *testing.T) {
	s, err := New[int]("bfs")
	assert.Nil(t, err)
	assert.IsType(t, &BFS[int]{}, s)
	s, err = New[int]("")
	assert.Nil(t, err)
	assert.IsType(t, &DFS[int]{}, s)
	_, err = New[int]("random")
	assert.NotNil(t, err)
}
