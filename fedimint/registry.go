package fedimint

import "encoding/json"

// LoadRegistry reads the federation registry record from the external
// WalletKV under RegistryKey. A missing key is not an error: it means no
// memberships have been registered yet, and an empty record is returned.
// Membership lifecycle (add/remove) is performed by a higher layer
// outside this core; this function only reads.
func LoadRegistry(kv WalletKV) (RegistryRecord, error) {
	v, err := kv.GetData(RegistryKey)
	if err != nil {
		return RegistryRecord{}, errRead(err)
	}
	if v == nil {
		return RegistryRecord{Federations: map[string]RegistryEntry{}}, nil
	}

	var rec RegistryRecord
	if v.Value != "" {
		if err := json.Unmarshal([]byte(v.Value), &rec); err != nil {
			return RegistryRecord{}, errRead(err)
		}
	}
	if rec.Federations == nil {
		rec.Federations = map[string]RegistryEntry{}
	}
	rec.Version = v.Version
	return rec, nil
}
