package loader_test

// Helpers assembling minimal wasm binaries by hand. The guest exports
// memory and plugin_info() -> i64, optionally calling env.log_message first.

const (
	infoOffset = 16
	logOffset  = 1024
)

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func name(s string) []byte {
	return append(uleb(uint64(len(s))), s...)
}

func section(id byte, content []byte) []byte {
	out := append([]byte{id}, uleb(uint64(len(content)))...)
	return append(out, content...)
}

func vec(items ...[]byte) []byte {
	out := uleb(uint64(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func dataSegment(offset int32, data []byte) []byte {
	return concat([]byte{0x00, 0x41}, sleb(int64(offset)), []byte{0x0b}, uleb(uint64(len(data))), data)
}

func packed(ptr, length int) int64 {
	return int64(ptr)<<32 | int64(length)
}

// buildPluginModule returns a module whose plugin_info returns info.
// When logMsg is not nil the function first passes it to env.log_message.
func buildPluginModule(info, logMsg []byte) []byte {
	withLog := logMsg != nil

	types := [][]byte{{0x60, 0x00, 0x01, 0x7e}}
	if withLog {
		types = append(types, []byte{0x60, 0x01, 0x7e, 0x00})
	}

	infoFunc := byte(0)
	body := []byte{0x00}
	if withLog {
		infoFunc = 1
		body = concat(body, []byte{0x42}, sleb(packed(logOffset, len(logMsg))), []byte{0x10, 0x00})
	}
	body = concat(body, []byte{0x42}, sleb(packed(infoOffset, len(info))), []byte{0x0b})

	segments := [][]byte{dataSegment(infoOffset, info)}
	if withLog {
		segments = append(segments, dataSegment(logOffset, logMsg))
	}

	mod := concat(
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		section(1, vec(types...)),
	)
	if withLog {
		mod = concat(mod, section(2, vec(concat(name("env"), name("log_message"), []byte{0x00, 0x01}))))
	}
	return concat(mod,
		section(3, vec([]byte{0x00})),
		section(5, vec([]byte{0x00, 0x01})),
		section(7, vec(
			concat(name("memory"), []byte{0x02, 0x00}),
			concat(name("plugin_info"), []byte{0x00, infoFunc}),
		)),
		section(10, vec(concat(uleb(uint64(len(body))), body))),
		section(11, vec(segments...)),
	)
}
