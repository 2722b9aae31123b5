package ingest

import (
	"strings"

	"github.com/okian/rinktime/internal/domain/model"
)

var infractionCategories = map[string]model.InfractionCategory{
	"HOOK":  model.CategoryStick,
	"SLASH": model.CategoryStick,
	"TRIP":  model.CategoryStick,
	"HIGH":  model.CategoryStick,
	"CROSS": model.CategoryStick,
	"SPEAR": model.CategoryStick,
	"BUTT":  model.CategoryStick,
	"BRKST": model.CategoryStick,

	"HOLD":   model.CategoryRestraining,
	"HOLDST": model.CategoryRestraining,
	"INTRF":  model.CategoryRestraining,
	"INTGK":  model.CategoryRestraining,

	"ROUGH": model.CategoryPhysical,
	"CHARG": model.CategoryPhysical,
	"BOARD": model.CategoryPhysical,
	"ELBOW": model.CategoryPhysical,
	"KNEE":  model.CategoryPhysical,
	"CHKBH": model.CategoryPhysical,
	"CHKHD": model.CategoryPhysical,
	"FIGHT": model.CategoryPhysical,

	"UNSPT": model.CategoryConduct,
	"DIVE":  model.CategoryConduct,
	"ABUSE": model.CategoryConduct,

	"MISC":  model.CategoryMisconduct,
	"GMISC": model.CategoryMisconduct,
	"MATCH": model.CategoryMisconduct,

	"DELAY": model.CategoryTechnical,
	"TOOMN": model.CategoryTechnical,
	"EQUIP": model.CategoryTechnical,
	"PSHOT": model.CategoryTechnical,
}

// Categorize maps an infraction code onto its category. Unknown codes
// report ok=false and fall into CategoryOther.
func Categorize(code string) (model.InfractionCategory, bool) {
	c, ok := infractionCategories[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return model.CategoryOther, false
	}
	return c, true
}
