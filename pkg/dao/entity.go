package dao

import (
	"context"
	"reflect"
	"strings"
	"unicode"

	"github.com/jmoiron/sqlx/reflectx"
	"github.com/pkg/errors"
)

// Tabler lets an entity name its own table.
type Tabler interface {
	TableName() string
}

// TableName returns the table for entity: its TableName method when it has
// one, otherwise the snake-cased struct name.
func TableName(entity any) string {
	if t, ok := entity.(Tabler); ok {
		return t.TableName()
	}
	typ := reflect.TypeOf(entity)
	for typ != nil && (typ.Kind() == reflect.Ptr || typ.Kind() == reflect.Slice) {
		typ = typ.Elem()
	}
	if typ == nil {
		return ""
	}
	return snakeCase(typ.Name())
}

func snakeCase(name string) string {
	var sb strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

type entityInfo struct {
	table  string
	values map[string]any
	// auto is the zero-valued field tagged `auto`, if any; it is left out of
	// the insert and filled from the generated key.
	auto     reflect.Value
	autoName string
}

func describe(entity any) (*entityInfo, error) {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, errors.Errorf("dao: entity must be a non-nil pointer to a struct, got %T", entity)
	}
	v = v.Elem()
	info := &entityInfo{table: TableName(entity), values: map[string]any{}}
	collectFields(v, fieldMapper.TypeMap(v.Type()).Tree, info)
	return info, nil
}

func collectFields(v reflect.Value, parent *reflectx.FieldInfo, info *entityInfo) {
	for _, fi := range parent.Children {
		if fi == nil {
			continue
		}
		if fi.Embedded && fi.Field.Tag.Get("db") == "" && fi.Field.Type.Kind() == reflect.Struct {
			collectFields(v, fi, info)
			continue
		}
		f := reflectx.FieldByIndexes(v, fi.Index)
		if _, auto := fi.Options["auto"]; auto && f.IsZero() {
			info.auto, info.autoName = f, fi.Path
			continue
		}
		info.values[fi.Path] = f.Interface()
	}
}

func keyColumns(info *entityInfo, pk []string) (where, rest map[string]any, err error) {
	if len(pk) == 0 {
		return nil, nil, errors.Errorf("dao: table %s has no primary key", info.table)
	}
	where = map[string]any{}
	rest = map[string]any{}
	for k, v := range info.values {
		rest[k] = v
	}
	for _, c := range pk {
		v, ok := rest[c]
		if !ok {
			return nil, nil, errors.Errorf("dao: entity for %s has no field for key column %s", info.table, c)
		}
		where[c] = v
		delete(rest, c)
	}
	return where, rest, nil
}

// Persist inserts entity into its table. A zero field tagged
// `db:"...,auto"` is omitted and set from the generated key afterwards.
func (d *DAO) Persist(ctx context.Context, entity any) error {
	if err := d.hooks.BeforeCreate(ctx, entity); err != nil {
		return errors.Wrap(err, "before create")
	}
	info, err := describe(entity)
	if err != nil {
		return err
	}
	if err := d.insertEntity(ctx, info); err != nil {
		return err
	}
	return errors.Wrap(d.hooks.AfterCreate(ctx, entity), "after create")
}

func (d *DAO) insertEntity(ctx context.Context, info *entityInfo) error {
	if !info.auto.IsValid() {
		return d.Insert(info.table, info.values, d.Executes(ctx))
	}
	return d.Insert(info.table, info.values, func(query string, params []any) error {
		switch {
		case d.dialect.ReturnsKeys() && d.dialect.fetch:
			query = strings.Replace(query, " VALUES (", " OUTPUT INSERTED."+info.autoName+" VALUES (", 1)
		case d.dialect.ReturnsKeys():
			query += " RETURNING " + info.autoName
		}
		rows, err := d.ExecuteUpdate(ctx, query, params, true)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		key, ok := rows[0].Get(info.autoName)
		if !ok {
			key, _ = rows[0].Get(GeneratedKeyColumn)
		}
		return errors.Wrapf(assign(info.auto, key), "setting generated key %s", info.autoName)
	})
}

// Merge updates the row matching entity's primary key, inserting it when
// no such row exists. An entity whose `auto` key is still zero is new and
// goes straight to the insert.
func (d *DAO) Merge(ctx context.Context, entity any) error {
	if err := d.hooks.BeforeUpdate(ctx, entity); err != nil {
		return errors.Wrap(err, "before update")
	}
	info, err := describe(entity)
	if err != nil {
		return err
	}
	if info.auto.IsValid() {
		if err := d.insertEntity(ctx, info); err != nil {
			return err
		}
		return errors.Wrap(d.hooks.AfterUpdate(ctx, entity), "after update")
	}

	pk, err := d.PrimaryKeyOf(ctx, info.table)
	if err != nil {
		return err
	}
	where, rest, err := keyColumns(info, pk)
	if err != nil {
		return err
	}

	var affected int64
	if len(rest) > 0 {
		err = d.Update(info.table, rest, where, func(query string, params []any) error {
			affected, err = d.NativeExecute(ctx, query, params)
			return err
		})
		if err != nil {
			return err
		}
	}
	// Zero affected rows can still mean a match: MySQL counts changed rows
	// unless clientFoundRows is set.
	if affected == 0 {
		found, err := d.exists(ctx, info.table, where)
		if err != nil {
			return err
		}
		if !found {
			if err := d.insertEntity(ctx, info); err != nil {
				return err
			}
		}
	}
	return errors.Wrap(d.hooks.AfterUpdate(ctx, entity), "after update")
}

func (d *DAO) exists(ctx context.Context, table string, where map[string]any) (bool, error) {
	conds, params := whereClause(where)
	_, found, err := d.ExecuteScalar(ctx, "SELECT 1 FROM "+table+" WHERE "+conds, params)
	return found, err
}

// Remove deletes the row matching entity's primary key.
func (d *DAO) Remove(ctx context.Context, entity any) error {
	if err := d.hooks.BeforeDelete(ctx, entity); err != nil {
		return errors.Wrap(err, "before delete")
	}
	info, err := describe(entity)
	if err != nil {
		return err
	}
	pk, err := d.PrimaryKeyOf(ctx, info.table)
	if err != nil {
		return err
	}
	where, _, err := keyColumns(info, pk)
	if err != nil {
		return err
	}
	if err := d.Delete(info.table, where, d.Executes(ctx)); err != nil {
		return err
	}
	return errors.Wrap(d.hooks.AfterDelete(ctx, entity), "after delete")
}
