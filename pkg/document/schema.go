package document

import (
	"github.com/tracebox-dev/tracebox/pkg/dht"
	"github.com/tracebox-dev/tracebox/pkg/keys"
)

var (
	fragmentTag = keys.HashBytes([]byte("tracebox/fragment-record/v1"))
	indexTag    = keys.HashBytes([]byte("tracebox/index-record/v1"))
	linksTag    = keys.HashBytes([]byte("tracebox/links-record/v1"))
)

// fragmentSchemaFor derives a schema tag specific to a content hash, so
// that two fragments sealing the same ciphertext resolve to the same record
// key via dht.Network.DeriveRecordKey. This is what makes FragmentRecord
// content-addressed rather than randomly keyed.
func fragmentSchemaFor(hash keys.Hash) dht.Schema {
	return dht.Schema{MaxSubkeys: dht.MaxSubkeys, Tag: keys.HashBytes(fragmentTag.Bytes(), hash.Bytes())}
}

func indexSchema() dht.Schema {
	return dht.Schema{MaxSubkeys: dht.MaxSubkeys, Tag: indexTag}
}

func linksSchema() dht.Schema {
	return dht.Schema{MaxSubkeys: dht.MaxSubkeys, Tag: linksTag}
}

// rootIndexSchema derives a schema tag specific to name, so that distinct
// named roots under the same shard resolve to distinct record keys via
// dht.Network.DeriveRecordKey.
func rootIndexSchema(name string) dht.Schema {
	return dht.Schema{MaxSubkeys: dht.MaxSubkeys, Tag: keys.HashBytes(indexTag.Bytes(), []byte(name))}
}
