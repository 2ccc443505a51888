package timetable

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Board 当前打开的全部课表视图。
// 订阅存储变更，任何一次变更都会从存储重建所有视图，而不是局部修补。
// 打开的视图数有上限，超出时关闭最久未访问的视图。
type Board struct {
	store    *Store
	cfg      GridConfig
	capacity int
	logger   *zap.Logger

	mu          sync.Mutex
	views       map[Scope]*boardView
	clock       uint64
	unsubscribe func()
}

type boardView struct {
	grid     *Grid
	err      error
	lastUsed uint64
}

// DefaultBoardCapacity 未指定上限时同时打开的视图数
const DefaultBoardCapacity = 256

// NewBoard 创建视图集合并订阅存储；capacity <= 0 时使用 DefaultBoardCapacity
func NewBoard(store *Store, cfg GridConfig, capacity int, logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = DefaultBoardCapacity
	}
	b := &Board{
		store:    store,
		cfg:      cfg,
		capacity: capacity,
		logger:   logger,
		views:    make(map[Scope]*boardView),
	}
	b.unsubscribe = store.Subscribe(func(Mutation) { b.Refresh() })
	return b
}

// Open 打开（或返回已打开的）视图
func (b *Board) Open(scope Scope) (*Grid, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.views[scope]
	if !ok {
		if len(b.views) >= b.capacity {
			b.evictOldest()
		}
		v = &boardView{}
		b.views[scope] = v
		b.rebuild(scope, v)
	}
	b.touch(v)
	return v.grid, v.err
}

func (b *Board) touch(v *boardView) {
	b.clock++
	v.lastUsed = b.clock
}

func (b *Board) evictOldest() {
	var (
		oldest   Scope
		found    bool
		lastUsed uint64
	)
	for scope, v := range b.views {
		if !found || v.lastUsed < lastUsed {
			oldest, lastUsed, found = scope, v.lastUsed, true
		}
	}
	if found {
		delete(b.views, oldest)
		b.logger.Debug("视图数达到上限，关闭最久未访问的视图", zap.String("scope", oldest.String()))
	}
}

// Close 关闭视图，之后不再随变更刷新
func (b *Board) Close(scope Scope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.views, scope)
}

// View 返回视图的最新投影
func (b *Board) View(scope Scope) (*Grid, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.views[scope]
	if !ok {
		return nil, errors.New("视图未打开")
	}
	b.touch(v)
	return v.grid, v.err
}

// Scopes 当前打开的视图
func (b *Board) Scopes() []Scope {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Scope, 0, len(b.views))
	for s := range b.views {
		out = append(out, s)
	}
	return out
}

// Refresh 重建全部视图
func (b *Board) Refresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for scope, v := range b.views {
		b.rebuild(scope, v)
	}
}

// Stop 取消订阅
func (b *Board) Stop() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
}

func (b *Board) rebuild(scope Scope, v *boardView) {
	grid, err := Project(b.store, scope, b.cfg)
	if err != nil {
		if errors.Is(err, ErrIntegrityViolation) {
			b.logger.Error("课表数据不一致，视图无法正确显示",
				zap.String("scope", scope.String()), zap.Error(err))
		} else {
			b.logger.Warn("课表投影失败", zap.String("scope", scope.String()), zap.Error(err))
		}
		v.grid, v.err = nil, err
		return
	}
	v.grid, v.err = grid, nil
}
