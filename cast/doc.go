// Package cast turns raw, loosely typed parameters into typed values
// described by a Schema, collecting every problem in a Record instead of
// failing on the first one.
//
// A Schema maps field names to a Type tag or a Field spec. A trailing "!"
// on the name marks the field as required:
//
//	schema := cast.Schema{
//		"name!": cast.String,
//		"age":   cast.Field{Type: cast.Integer, Default: 18},
//		"tags":  cast.ArrayOf(cast.String),
//	}
//
//	caster, err := cast.Compile(schema)
//	rec := caster.Cast(map[string]any{"name": "Ann", "age": "25"})
//	rec.Valid()   // true
//	rec.Apply()   // map[age:25 name:Ann]
//
// Incoming keys the schema does not declare are dropped. Coercion is lenient
// ("true" becomes true, "25" becomes 25) and is delegated to spf13/cast.
// Cross-field checks are layered on afterwards, either with Go code through
// Record.AddError or with expression Rules.
package cast
