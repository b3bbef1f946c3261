// Package strategy 实现待探索状态的处理顺序
package strategy

import "fmt"

// Strategy 待处理队列
type Strategy[T any] interface {
	Size() int
	HasNext() bool
	Pop() (T, error)
	Push(...T) error
}

// ErrEmpty 队列为空
var ErrEmpty = fmt.Errorf("state queue is empty")

// New 按名字创建策略：dfs 或 bfs
func New[T any](name string) (Strategy[T], error) {
	switch name {
	case "", "dfs":
		return NewDFS[T](), nil
	case "bfs":
		return NewBFS[T](), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}
