// Package cryptobox encrypts whole records with a passphrase.
//
// An envelope is ASCII text with exactly five colon-separated fields:
//
//	ENCRYPTED_v1:<iv>:<salt>:<ciphertext>:<tag>
//
// IV (12 bytes), salt (16 bytes), ciphertext and GCM tag (16 bytes) are
// standard base64. The key is derived per envelope with PBKDF2-HMAC-SHA512
// (100,000 iterations) from the passphrase and the envelope's salt, then
// used with AES-256-GCM.
//
// Encrypting the same plaintext twice yields different envelopes because the
// salt and IV are fresh on every call.
//
// Decrypt separates two failure kinds: ErrFormat when the envelope is not
// shaped like one, and ErrDecrypt when authentication fails. A wrong
// passphrase and a tampered envelope both yield ErrDecrypt; callers cannot
// tell them apart.
//
// Key derivation is deliberately slow and runs inline on the caller's
// goroutine.
package cryptobox
