// params.go — привязка UUID-параметров пути через oapi-codegen runtime.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/casevault/internal/api/errors"
)

// pathUUID привязывает параметр пути name как UUID.
// При ошибке пишет ответ 400 и возвращает false.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр "+name+": ожидается UUID")
		return "", false
	}
	return id.String(), true
}
