package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeindex-dev/codeindex/internal/langregistry"
	"github.com/codeindex-dev/codeindex/internal/model"
)

func extractRust(t *testing.T, source string) *Extraction {
	t.Helper()
	reg, err := langregistry.New(nil)
	require.NoError(t, err)
	src := []byte(source)
	tree, err := reg.Parse(src, model.LangRust)
	require.NoError(t, err)
	defer tree.Close()
	return RustExtractor{}.ExtractTree(tree.RootNode(), src)
}

const rustSample = `
pub struct Widget {
    pub name: String,
    hidden: i32,
}

impl Widget {
    pub fn describe(&self) -> String {
        helper(&self.name)
    }
}

fn helper(s: &str) -> String {
    s.to_string()
}
`

func TestRustExtractorStructAndMethods(t *testing.T) {
	ext := extractRust(t, rustSample)

	widget, ok := symbolNamed(ext.Symbols, "Widget")
	require.True(t, ok)
	require.Equal(t, model.KindStruct, widget.Kind)
	require.True(t, widget.Exported)

	name, ok := symbolNamed(ext.Symbols, "name")
	require.True(t, ok)
	require.True(t, name.Exported)

	hidden, ok := symbolNamed(ext.Symbols, "hidden")
	require.True(t, ok)
	require.False(t, hidden.Exported)

	describe, ok := symbolNamed(ext.Symbols, "describe")
	require.True(t, ok)
	require.Equal(t, model.KindMethod, describe.Kind)
	require.Equal(t, "Widget::describe", describe.QualifiedName)

	helperFn, ok := symbolNamed(ext.Symbols, "helper")
	require.True(t, ok)
	require.False(t, helperFn.Exported)
}

func TestRustExtractorCalls(t *testing.T) {
	ext := extractRust(t, rustSample)
	found := false
	for _, c := range ext.Calls {
		if c.CalleeName == "helper" {
			found = true
		}
	}
	require.True(t, found)
}

// rustUserServiceFixture is adapted from sample-code.rs: a trait, an impl of that trait for a struct, a separate
// inherent impl, enum variants, and a standalone generic function.
const rustUserServiceFixture = `
const MAX_USERS: usize = 1000;
static GLOBAL_SERVICE: bool = false;

pub struct User {
    pub id: u32,
    pub name: String,
}

impl User {
    pub fn new(id: u32, name: String) -> Self {
        User { id, name }
    }

    pub fn is_valid(&self) -> bool {
        validate_email(&self.name)
    }
}

pub fn validate_email(email: &str) -> bool {
    email.contains('@')
}

pub enum UserRole {
    Admin,
    User,
    Guest,
}

pub trait Validator {
    fn validate(&self) -> Result<(), String>;
}

impl Validator for User {
    fn validate(&self) -> Result<(), String> {
        if !validate_email(&self.name) {
            return Err("invalid".to_string());
        }
        Ok(())
    }
}

pub fn find_user_by<T, F>(users: &[User], predicate: F) -> Option<&User>
where
    F: Fn(&User) -> Option<T>,
{
    users.iter().find_map(predicate)
}
`

func TestRustExtractorUserServiceFixture(t *testing.T) {
	ext := extractRust(t, rustUserServiceFixture)

	maxUsers, ok := symbolNamed(ext.Symbols, "MAX_USERS")
	require.True(t, ok)
	require.Equal(t, model.KindConstant, maxUsers.Kind)
	require.False(t, maxUsers.Exported, "const without pub is not exported")

	isValid, ok := symbolByQualifiedName(ext.Symbols, "User::is_valid")
	require.True(t, ok)
	require.Equal(t, model.KindMethod, isValid.Kind)
	require.True(t, isValid.Exported)

	traitValidate, ok := symbolByQualifiedName(ext.Symbols, "Validator::validate")
	require.True(t, ok, "a trait's own method signature is recorded under the trait's qualified name")

	implValidate, ok := symbolByQualifiedName(ext.Symbols, "User::validate")
	require.True(t, ok, "a trait impl's method is recorded under the implementing struct's qualified name")
	require.NotEqual(t, traitValidate.QualifiedName, implValidate.QualifiedName)

	findUserBy, ok := symbolNamed(ext.Symbols, "find_user_by")
	require.True(t, ok)
	require.True(t, findUserBy.Exported)

	found := false
	for _, c := range ext.Calls {
		if c.CalleeName == "validate_email" {
			found = true
		}
	}
	require.True(t, found, "is_valid calls validate_email")
}
