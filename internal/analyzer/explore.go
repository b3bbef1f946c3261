package analyzer

import (
	"gbinsym/internal/cfg"
	"gbinsym/internal/config"
	"gbinsym/internal/expr"
	"gbinsym/internal/mapper"

	"github.com/pkg/errors"
)

// Explorer 构建控制流图的方式
type Explorer interface {
	GetCFG(addr ...uint64) ([]*cfg.Func, error)
	Graph() *cfg.Graph
}

// NewExplorer 按配置选择lsweep/fforward/lforward
func NewExplorer(p cfg.Program, conf config.Analysis) (Explorer, error) {
	policy := cfg.Policy{Order: cfg.DFS, Lazy: conf.Lazy, MaxBlocks: conf.MaxBlocks}
	switch conf.Policy {
	case "", "dfs":
	case "bfs":
		policy.Order = cfg.BFS
	default:
		return nil, errors.Errorf("unknown policy %q", conf.Policy)
	}
	switch conf.Strategy {
	case "lsweep":
		return cfg.NewLSweep(p), nil
	case "fforward":
		return cfg.FForward(p, policy), nil
	case "", "lforward":
		return cfg.LForward(p, policy), nil
	}
	return nil, errors.Errorf("unknown strategy %q", conf.Strategy)
}

// Apply 设置表达式和mapper的全局参数
func Apply(conf config.Analysis) {
	expr.SetThreshold(conf.Threshold)
	mapper.DefaultAssumeNoAliasing = conf.AssumeNoAliasing
}
