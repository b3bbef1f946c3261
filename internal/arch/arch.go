// Package arch 架构注册表，各架构包在init中注册自己
package arch

import (
	"sort"
	"sync"

	"gbinsym/internal/decoder"

	"github.com/pkg/errors"
)

// Factory 创建一个新的CPU实例
type Factory func() *decoder.CPU

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register 注册架构，重名时覆盖
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// Lookup 按名字创建CPU
func Lookup(name string) (*decoder.CPU, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown architecture %q (have %v)", name, Names())
	}
	return f(), nil
}

// Names 已注册的架构
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
