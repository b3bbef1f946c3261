package strategy

// DFS 深度优先搜索策略
type DFS[T any] struct {
	states []T
}

func NewDFS[T any]() *DFS[T] {
	return &DFS[T]{
		states: make([]T, 0),
	}
}

func (dfs *DFS[T]) Size() int {
	return len(dfs.states)
}

func (dfs *DFS[T]) HasNext() bool {
	return len(dfs.states) > 0
}

// Pop 后进先出；同一次Push的状态按参数顺序弹出
func (dfs *DFS[T]) Pop() (T, error) {
	var zero T
	if len(dfs.states) <= 0 {
		return zero, ErrEmpty
	}
	state := dfs.states[len(dfs.states)-1]
	dfs.states = dfs.states[:len(dfs.states)-1]
	return state, nil
}

func (dfs *DFS[T]) Push(states ...T) error {
	for i := len(states) - 1; i >= 0; i-- {
		dfs.states = append(dfs.states, states[i])
	}
	return nil
}
