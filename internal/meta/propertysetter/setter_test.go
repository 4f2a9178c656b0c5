package propertysetter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-tax/internal/shared"
)

func TestNormalizeCheckValues(t *testing.T) {
	cases := map[string]string{"1": "1", "true": "1", "0": "0", "false": "0", "": "0"}
	for in, want := range cases {
		got, err := Setter{DocType: "Item", FieldName: "default_discount_account", Property: "hidden", Value: in, PropertyType: TypeCheck}.Normalize()
		require.NoError(t, err)
		require.Equal(t, want, got.Value, "input %q", in)
	}
}

func TestNormalizeRejectsMissingKeys(t *testing.T) {
	_, err := Setter{Property: "hidden", PropertyType: TypeCheck}.Normalize()
	require.ErrorIs(t, err, shared.ErrValidation)

	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Details, "doctype")
	require.Contains(t, verr.Details, "fieldname")
}

func TestNormalizeTypes(t *testing.T) {
	_, err := Setter{DocType: "A", FieldName: "b", Property: "precision", Value: "x", PropertyType: TypeInt}.Normalize()
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = Setter{DocType: "A", FieldName: "b", Property: "c", PropertyType: "Select"}.Normalize()
	require.ErrorIs(t, err, shared.ErrValidation)

	got, err := Setter{DocType: "A", FieldName: "b", Property: "mandatory_depends_on", Value: "eval: doc.discount_amount", PropertyType: TypeCode}.Normalize()
	require.NoError(t, err)
	require.Equal(t, "eval: doc.discount_amount", got.Value)

	got, err = Setter{DocType: "A", FieldName: "b", Property: "label"}.Normalize()
	require.NoError(t, err)
	require.Equal(t, TypeData, got.PropertyType)
}

func TestCheckValue(t *testing.T) {
	require.Equal(t, "1", CheckValue(true))
	require.Equal(t, "0", CheckValue(false))
}
