package catalogs

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemaMu    sync.Mutex
	schemaCache = map[string]*jsonschema.Schema{}
)

// schemaFor compiles (once) the embedded schema for a catalog file name.
func schemaFor(file string) (*jsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	if s, ok := schemaCache[file]; ok {
		return s, nil
	}
	name := strings.TrimSuffix(file, ".json") + ".schema.json"
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("no schema for %s", file)
	}
	url := "mem://catalogs/" + name
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, err
	}
	schemaCache[file] = s
	return s, nil
}

func validate(file string, raw []byte) error {
	s, err := schemaFor(file)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return s.Validate(doc)
}
