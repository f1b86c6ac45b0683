package tests

import (
	"os"
	"testing"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/content"
	"github.com/trezcool/educa/core/course"
	"github.com/trezcool/educa/core/user"
)

func TestMain(m *testing.M) {
	core.Conf.Debug = false
	core.Conf.TestMode = true

	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	content.InitValidators(validate, translator)

	core.ParseEmailTemplates(nil)
	user.LoadCommonPasswords(nil)

	os.Exit(m.Run())
}
