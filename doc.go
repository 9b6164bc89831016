// Package fastinfoset encodes XML infoset events into the Fast Infoset binary
// format and decodes such documents back into the same events.
//
// Encoder and Decoder are push-style and single-threaded. A Decoder replays a
// document to a Handler; an Encoder is itself a Handler, so decoding into an
// Encoder re-encodes a document:
//
//	enc, err := fastinfoset.NewEncoder(w, fastinfoset.NewEncoderOptions())
//	if err != nil {
//		return err
//	}
//	dec, err := fastinfoset.NewDecoder(r, fastinfoset.NewDecoderOptions())
//	if err != nil {
//		return err
//	}
//	err = dec.Decode(enc)
//
// Both sides build identical vocabulary tables for identical event streams,
// which lets repeated names and short values be sent as table indices.
// Vocabularies start from an optional ExternalVocabulary shared read-only
// between instances, and are reset at the end of every document.
package fastinfoset
