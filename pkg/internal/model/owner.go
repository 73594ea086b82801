package model

import (
	"context"
	"fmt"
	"sync"
)

// Owner 是可以挂附件的领域对象的能力接口. 核心不构造 owner，
// 只通过注入的解析器确认引用指向一个真实存在的记录.
type Owner interface {
	TypeTag() string
	NumericID() uint64
}

// OwnerLookup 按数字 ID 解析某一类型的 owner；不存在时返回错误.
type OwnerLookup func(ctx context.Context, id uint64) (Owner, error)

// OwnerRegistry 维护类型标签到解析函数的映射，由宿主应用在启动时注册.
type OwnerRegistry struct {
	mu      sync.RWMutex
	lookups map[string]OwnerLookup
}

// NewOwnerRegistry 创建空注册表.
func NewOwnerRegistry() *OwnerRegistry {
	return &OwnerRegistry{lookups: map[string]OwnerLookup{}}
}

// Register 注册一种 owner 类型. 重复注册以后者为准.
func (r *OwnerRegistry) Register(typeTag string, lookup OwnerLookup) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lookups[typeTag] = lookup
}

// Resolve 把 {类型标签, ID} 解析为 owner 对象.
func (r *OwnerRegistry) Resolve(ctx context.Context, typeTag string, id uint64) (Owner, error) {
	r.mu.RLock()
	lookup, ok := r.lookups[typeTag]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown owner type %q", typeTag)
	}

	return lookup(ctx, id)
}

// Types 返回已注册的类型标签.
func (r *OwnerRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.lookups))
	for tag := range r.lookups {
		tags = append(tags, tag)
	}

	return tags
}
