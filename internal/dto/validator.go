package dto

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/flyswxf/calendar/internal/calendar"
)

// RegisterValidators 向 gin 的 binding 引擎注册自定义校验标签
//
//   - hhmm: "HH:MM" 形式的当日时刻，允许 24:00
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("binding 校验引擎不是 validator/v10")
	}
	return v.RegisterValidation("hhmm", validateHHMM)
}

func validateHHMM(fl validator.FieldLevel) bool {
	_, err := calendar.ParseHM(fl.Field().String())
	return err == nil
}
