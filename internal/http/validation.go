package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"lexia-auth/internal/domain"
	"lexia-auth/internal/service"
)

var registerOnce sync.Once

// registerValidators agrega las reglas del dominio al validador de gin y
// hace que los errores usen los nombres json de los campos.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("usertype", func(fl validator.FieldLevel) bool {
			return service.SelfAssignableUserType(domain.UserType(fl.Field().String()))
		})
		_ = v.RegisterValidation("fontsize", func(fl validator.FieldLevel) bool {
			return service.ValidFontSize(fl.Field().String())
		})
		_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return service.PasswordProblem(fl.Field().String()) == ""
		})
	})
}

// bindJSON decodifica el cuerpo y responde 400 con errores por campo si falla.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	writeValidation(c, bindingErrors(err, rootName(req)))
	return false
}

func rootName(req any) string {
	t := reflect.TypeOf(req)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}

func bindingErrors(err error, root string) []service.FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]service.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, service.FieldError{Field: fieldPath(fe, root), Message: fieldMessage(fe)})
		}
		return out
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []service.FieldError{{Field: typeErr.Field, Message: "Invalid value type"}}
	}
	return []service.FieldError{{Field: "body", Message: "Malformed JSON body"}}
}

// fieldPath quita el nombre del struct raiz si lo tiene: "Req.profile.bio" -> "profile.bio".
func fieldPath(fe validator.FieldError, root string) string {
	ns := fe.Namespace()
	if root != "" {
		ns = strings.TrimPrefix(ns, root+".")
	}
	if ns == "" {
		return fe.Field()
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please provide a valid email"
	case "usertype":
		return "Please select a valid user type"
	case "fontsize":
		return "Invalid font size"
	case "password":
		if msg := service.PasswordProblem(fmt.Sprint(fe.Value())); msg != "" {
			return msg
		}
	case "url":
		return "Please provide a valid website URL"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
