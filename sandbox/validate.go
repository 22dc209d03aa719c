package sandbox

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	validateTagName = "validate"

	// PortMin 可暴露端口的下限。
	PortMin = 1
	// PortMax 可暴露端口的上限。
	PortMax = 65535
)

var defaultValidator = &paramValidator{}

type paramValidator struct {
	once     sync.Once
	validate *validator.Validate
}

// Validate 参数验证
func (v *paramValidator) Validate(obj interface{}) error {
	if obj == nil {
		return nil
	}
	value := reflect.ValueOf(obj)
	switch value.Kind() {
	case reflect.Ptr:
		if value.IsNil() {
			return nil
		}
		return v.Validate(value.Elem().Interface())
	case reflect.Struct:
		v.lazyInit()
		if err := v.validate.Struct(obj); err != nil {
			return fmt.Errorf("invalid parameters: %w", err)
		}
	}
	return nil
}

func (v *paramValidator) validatePort(port int) error {
	v.lazyInit()
	if err := v.validate.Var(port, fmt.Sprintf("min=%d,max=%d", PortMin, PortMax)); err != nil {
		return &InvalidPortError{Port: port}
	}
	return nil
}

// lazyInit 延迟初始化
func (v *paramValidator) lazyInit() {
	v.once.Do(func() {
		v.validate = validator.New()
		v.validate.SetTagName(validateTagName)
		// duration: 能被 ParseDuration 解析的时长字符串
		_ = v.validate.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
			_, err := ParseDuration(fl.Field().String())
			return err == nil
		})
	})
}
