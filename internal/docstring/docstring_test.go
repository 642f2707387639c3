package docstring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smalltableDocstring = `
        Fetches rows from a Smalltable.

        Retrieves rows pertaining to the given keys from the Table instance
        represented by table_handle.  String keys will be UTF-8 encoded.

        Args:
            table_handle: An open smalltable.Table instance.
            keys: A sequence of strings representing the key of each table
              row to fetch.  String keys will be UTF-8 encoded.
            require_all_keys: If True only rows with values set for all keys will be
              returned.

        Returns:
            A dict mapping keys to the corresponding table row data
            fetched. Each row is represented as a tuple of strings. For
            example:

            {b'Serak': ('Rigel VII', 'Preparer'),
             b'Zim': ('Irk', 'Invader'),
             b'Lrrr': ('Omicron Persei 8', 'Emperor')}

            Returned keys are always bytes.  If a key from the keys argument is
            missing from the dictionary, then that row was not found in the
            table (and require_all_keys must have been False).

        Raises:
            IOError: An error occurred accessing the smalltable.
        `

func strPtr(s string) *string { return &s }

func TestParse_GoogleStyle(t *testing.T) {
	d := Parse(smalltableDocstring)

	assert.Equal(t, "Fetches rows from a Smalltable.", d.Title)
	assert.Equal(t,
		"Retrieves rows pertaining to the given keys from the Table instance\nrepresented by table_handle.  String keys will be UTF-8 encoded.",
		d.Description)

	t.Run("Arguments", func(t *testing.T) {
		require.Len(t, d.Arguments, 3)
		assert.Equal(t, Argument{
			Name:        "table_handle",
			Description: strPtr("An open smalltable.Table instance."),
		}, d.Arguments[0])
		assert.Equal(t, "keys", d.Arguments[1].Name)
		assert.Equal(t,
			"A sequence of strings representing the key of each table\n  row to fetch.  String keys will be UTF-8 encoded.",
			*d.Arguments[1].Description)
		assert.Equal(t, "require_all_keys", d.Arguments[2].Name)
		assert.Equal(t,
			"If True only rows with values set for all keys will be\n  returned.",
			*d.Arguments[2].Description)
		for _, a := range d.Arguments {
			assert.Nil(t, a.Type)
			assert.Nil(t, a.Default)
		}
	})

	t.Run("Returns", func(t *testing.T) {
		assert.Equal(t,
			"A dict mapping keys to the corresponding table row data\n"+
				"fetched. Each row is represented as a tuple of strings. For\n"+
				"example:\n\n"+
				"{b'Serak': ('Rigel VII', 'Preparer'),\n"+
				" b'Zim': ('Irk', 'Invader'),\n"+
				" b'Lrrr': ('Omicron Persei 8', 'Emperor')}\n\n"+
				"Returned keys are always bytes.  If a key from the keys argument is\n"+
				"missing from the dictionary, then that row was not found in the\n"+
				"table (and require_all_keys must have been False).",
			d.Returns)
	})

	t.Run("Raises", func(t *testing.T) {
		require.Len(t, d.Raises, 1)
		assert.Equal(t, Raises{
			Exception:   "IOError",
			Description: strPtr("An error occurred accessing the smalltable."),
		}, d.Raises[0])
	})

	t.Run("Body holds only the description", func(t *testing.T) {
		require.Len(t, d.Body, 1)
		assert.Equal(t, Text(d.Description), d.Body[0])
		assert.Empty(t, d.PrivateArguments)
	})
}

func TestParse_CompactSections(t *testing.T) {
	d := Parse("Fetches rows.\n\nDetail line.\n\nArgs:\n    x: a number\n\nReturns:\n    a value\n\nRaises:\n    IOError: bad access\n")

	assert.Equal(t, "Fetches rows.", d.Title)
	assert.Equal(t, "Detail line.", d.Description)
	assert.Equal(t, []Argument{{Name: "x", Description: strPtr("a number")}}, d.Arguments)
	assert.Equal(t, "a value", d.Returns)
	assert.Equal(t, []Raises{{Exception: "IOError", Description: strPtr("bad access")}}, d.Raises)
}

func TestParse_CodeSnippets(t *testing.T) {
	d := Parse(`
        This is a docstring with code snippets

        >>> 1 + 1 = 2
        >>> 2 + 2 = 4
        >>> print("something")

        >>> 1 + 1 = 3
        >>> 2 + 2 = 5
        >>> print("something wrong")
        `)

	assert.Equal(t, "This is a docstring with code snippets", d.Title)
	assert.Equal(t, []BodyPart{
		CodeSnippet("1 + 1 = 2\n2 + 2 = 4\nprint(\"something\")"),
		CodeSnippet("1 + 1 = 3\n2 + 2 = 5\nprint(\"something wrong\")"),
	}, d.Body)
}

func TestParse_CodeThenText(t *testing.T) {
	d := Parse("Title\n\n>>> 1+1\n>>> 2+2\n\nThat was arithmetic.")

	assert.Equal(t, []BodyPart{
		CodeSnippet("1+1\n2+2"),
		Text("That was arithmetic."),
	}, d.Body)
	assert.True(t, d.Body[0].IsCode())
	assert.False(t, d.Body[1].IsCode())
}

func TestParse_AlternateHeaders(t *testing.T) {
	d := Parse(`Builds a schema.

    Arguments:
        query: The root query type.

    Private arguments:
        _cache: Internal cache handle.
          Shared between calls.
    `)

	require.Len(t, d.Arguments, 1)
	assert.Equal(t, "query", d.Arguments[0].Name)
	require.Len(t, d.PrivateArguments, 1)
	assert.Equal(t, "_cache", d.PrivateArguments[0].Name)
	assert.Equal(t, "Internal cache handle.\n  Shared between calls.", *d.PrivateArguments[0].Description)
}

func TestParse_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\n\t\n"} {
		d := Parse(raw)
		assert.True(t, d.IsEmpty(), "input %q", raw)
		assert.Equal(t, "", d.Title)
		assert.Empty(t, d.Body)
		assert.Empty(t, d.Arguments)
		assert.Empty(t, d.Raises)
	}
}

func TestParse_TitleOnly(t *testing.T) {
	d := Parse("Returns the answer.")

	assert.Equal(t, "Returns the answer.", d.Title)
	assert.Empty(t, d.Description)
	assert.Empty(t, d.Body)
	assert.Empty(t, d.Returns)
}

func TestParse_MultiLineTitle(t *testing.T) {
	d := Parse("A title that\nwraps onto two lines.\n\nBody.")

	assert.Equal(t, "A title that wraps onto two lines.", d.Title)
	assert.Equal(t, "Body.", d.Description)
}

func TestParse_Malformed(t *testing.T) {
	inputs := []string{
		"Args:",
		"Title\n\nArgs:\nRaises:\nReturns:",
		"Title\n\nArgs:\n    no colon here\n        still none",
		"Title\n\n>>> ",
		">>> only code",
		"\t\tTitle\n\t\n\t\tRaises:\n\t\t\t:",
		"Title\n\n    Args:\n  x: y",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Parse(in) }, "input %q", in)
	}

	d := Parse("Title\n\nArgs:\n    no colon here\n        still none")
	assert.Empty(t, d.Arguments)

	d = Parse("Title\n\nRaises:\n    :")
	require.Len(t, d.Raises, 1)
	assert.Equal(t, "", d.Raises[0].Exception)
}

func TestParse_EmptyListsEncodeAsArrays(t *testing.T) {
	for _, raw := range []string{"", "Title only."} {
		d := Parse(raw)
		require.NotNil(t, d.Body)

		data, err := json.Marshal(d)
		require.NoError(t, err)

		var fields map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &fields))
		for _, key := range []string{"body", "arguments", "private_arguments", "raises"} {
			assert.JSONEq(t, "[]", string(fields[key]), "%s of %q", key, raw)
		}
	}
}
