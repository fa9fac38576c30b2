package dao

import "context"

// Hooks defines lifecycle callbacks for entity operations
type Hooks interface {
	BeforeCreate(ctx context.Context, entity interface{}) error
	AfterCreate(ctx context.Context, entity interface{}) error
	BeforeUpdate(ctx context.Context, entity interface{}) error
	AfterUpdate(ctx context.Context, entity interface{}) error
	BeforeDelete(ctx context.Context, entity interface{}) error
	AfterDelete(ctx context.Context, entity interface{}) error
}

// NopHooks implements Hooks with no-ops; embed it to override only some.
type NopHooks struct{}

func (NopHooks) BeforeCreate(ctx context.Context, entity interface{}) error { return nil }
func (NopHooks) AfterCreate(ctx context.Context, entity interface{}) error  { return nil }
func (NopHooks) BeforeUpdate(ctx context.Context, entity interface{}) error { return nil }
func (NopHooks) AfterUpdate(ctx context.Context, entity interface{}) error  { return nil }
func (NopHooks) BeforeDelete(ctx context.Context, entity interface{}) error { return nil }
func (NopHooks) AfterDelete(ctx context.Context, entity interface{}) error  { return nil }
