package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON 通用 JSON 对象字段
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSON)
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, j)
}

// UintList 无符号整数数组，用于存储勾选的结算项 ID
type UintList []uint

// Value 实现 driver.Valuer 接口
func (l UintList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]uint(l))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan 实现 sql.Scanner 接口
func (l *UintList) Scan(value interface{}) error {
	if value == nil {
		*l = UintList{}
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		*l = UintList{}
		return nil
	}
	return json.Unmarshal(bytes, (*[]uint)(l))
}

// Contains 判断是否包含指定 ID
func (l UintList) Contains(id uint) bool {
	for _, item := range l {
		if item == id {
			return true
		}
	}
	return false
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported json column type %T", value)
	}
}
