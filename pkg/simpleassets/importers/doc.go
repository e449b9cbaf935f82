// Package importers provides ready-made importers and exporters: an Aseprite
// header reader, generic JSON and YAML codecs for any Go type, and plain text.
//
// Register them on a database before loading:
//
//	simpleassets.AddImporter[importers.AsepriteFile](db, importers.AsepriteImporter{})
//	simpleassets.AddImporter[Level](db, importers.JSONImporter[Level]{})
package importers
