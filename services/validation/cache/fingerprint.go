// Copyright (C) 2026 Emberwell AI (oss@emberwell.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"

	"github.com/EmberwellAI/emberguard/services/validation/datatypes"
)

// Fingerprint computes the stable cache key for a (content, context)
// pair.
//
// Description:
//
//	The key hashes the content text together with the
//	validation-relevant context subset: scope, strict mode, declared
//	therapeutic goals, and declared risk factors. Session and user ids
//	are deliberately excluded so immaterial differences still share
//	cache entries. Goal and factor slices are sorted before hashing so
//	declaration order does not fragment the cache.
func Fingerprint(content datatypes.ContentItem, vctx datatypes.ValidationContext) string {
	h := sha256.New()
	h.Write([]byte(content.Text))
	h.Write([]byte{0})
	h.Write([]byte(content.AgeGroup))
	h.Write([]byte{0})
	h.Write([]byte(vctx.Scope))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(vctx.Strict())))
	writeSorted(h, vctx.TherapeuticGoals)
	writeSorted(h, vctx.RiskFactors)
	return hex.EncodeToString(h.Sum(nil))
}

func writeSorted(h interface{ Write(p []byte) (int, error) }, values []string) {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	for _, v := range sorted {
		h.Write([]byte{0})
		h.Write([]byte(v))
	}
	h.Write([]byte{1})
}
