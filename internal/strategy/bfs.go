package strategy

// BFS 广度优先搜索策略
type BFS[T any] struct {
	states []T
}

func NewBFS[T any]() *BFS[T] {
	return &BFS[T]{
		states: make([]T, 0),
	}
}

func (bfs *BFS[T]) Size() int {
	return len(bfs.states)
}

func (bfs *BFS[T]) HasNext() bool {
	return len(bfs.states) > 0
}

func (bfs *BFS[T]) Pop() (T, error) {
	var zero T
	if len(bfs.states) <= 0 {
		return zero, ErrEmpty
	}
	state := bfs.states[0]
	bfs.states = bfs.states[1:]
	return state, nil
}

func (bfs *BFS[T]) Push(states ...T) error {
	bfs.states = append(bfs.states, states...)
	return nil
}
