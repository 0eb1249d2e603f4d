package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeindex-dev/codeindex/internal/langregistry"
	"github.com/codeindex-dev/codeindex/internal/model"
)

func extractPy(t *testing.T, source string) *Extraction {
	t.Helper()
	reg, err := langregistry.New(nil)
	require.NoError(t, err)
	src := []byte(source)
	tree, err := reg.Parse(src, model.LangPython)
	require.NoError(t, err)
	defer tree.Close()
	return PyExtractor{}.ExtractTree(tree.RootNode(), src)
}

const pySample = `
class Widget:
    def __init__(self, name):
        self.name = name

    def describe(self):
        return helper(self.name)

    def _private(self):
        pass


def helper(s):
    return s
`

func TestPyExtractorClassAndMethods(t *testing.T) {
	ext := extractPy(t, pySample)

	widget, ok := symbolNamed(ext.Symbols, "Widget")
	require.True(t, ok)
	require.Equal(t, model.KindClass, widget.Kind)
	require.True(t, widget.Exported)

	init, ok := symbolNamed(ext.Symbols, "__init__")
	require.True(t, ok)
	require.Equal(t, model.KindMethod, init.Kind)
	require.True(t, init.Exported, "dunder methods are exported despite the leading underscore")

	private, ok := symbolNamed(ext.Symbols, "_private")
	require.True(t, ok)
	require.False(t, private.Exported)

	helperFn, ok := symbolNamed(ext.Symbols, "helper")
	require.True(t, ok)
	require.Equal(t, model.KindFunction, helperFn.Kind)
}

func TestPyExtractorCalls(t *testing.T) {
	ext := extractPy(t, pySample)
	found := false
	for _, c := range ext.Calls {
		if c.CalleeName == "helper" {
			found = true
		}
	}
	require.True(t, found)
}

func TestIsExportedPy(t *testing.T) {
	require.True(t, isExportedPy("__init__"))
	require.True(t, isExportedPy("__len__"))
	require.False(t, isExportedPy("_hidden"))
	require.True(t, isExportedPy("public"))
	require.False(t, isExportedPy(""))
}

// pyUserServiceFixture is adapted from sample-code.py: uppercase module constants next to a lowercase module
// variable, a @property-decorated method, a @staticmethod, and a
// @log_calls-decorated standalone function.
const pyUserServiceFixture = `
MAX_USERS = 1000
DEFAULT_PAGE_SIZE = 20

_global_cache = {}
debug_mode = False


class User:
    def __init__(self, user_id, name, email):
        self.id = user_id
        self.name = name
        self.email = email

    @property
    def is_valid(self):
        return validate_email(self.email) and len(self.name) > 0

    @staticmethod
    def from_dict(data):
        return User(data['id'], data['name'], data['email'])


def validate_email(email):
    return '@' in email and '.' in email


def log_calls(func):
    def wrapper(*args, **kwargs):
        return func(*args, **kwargs)
    return wrapper


@log_calls
def process_user_batch(users):
    return len(users)
`

func TestPyExtractorUserServiceFixture(t *testing.T) {
	ext := extractPy(t, pyUserServiceFixture)

	maxUsers, ok := symbolNamed(ext.Symbols, "MAX_USERS")
	require.True(t, ok)
	require.Equal(t, model.KindConstant, maxUsers.Kind, "an all-uppercase module-level name is a constant")

	cache, ok := symbolNamed(ext.Symbols, "_global_cache")
	require.True(t, ok)
	require.Equal(t, model.KindVariable, cache.Kind, "a lowercase module-level name stays a variable")

	debugMode, ok := symbolNamed(ext.Symbols, "debug_mode")
	require.True(t, ok)
	require.Equal(t, model.KindVariable, debugMode.Kind)

	isValid, ok := symbolNamed(ext.Symbols, "is_valid")
	require.True(t, ok)
	require.Equal(t, model.KindProperty, isValid.Kind, "a @property-decorated method is a property, not a plain method")

	fromDict, ok := symbolNamed(ext.Symbols, "from_dict")
	require.True(t, ok)
	require.Equal(t, model.KindMethod, fromDict.Kind, "@staticmethod carries no property rewrite")

	batch, ok := symbolNamed(ext.Symbols, "process_user_batch")
	require.True(t, ok)
	require.Equal(t, model.KindFunction, batch.Kind, "a decorated top-level function stays a function, decorator aside")

	found := false
	for _, c := range ext.Calls {
		if c.CalleeName == "validate_email" {
			found = true
		}
	}
	require.True(t, found, "is_valid calls validate_email")
}
