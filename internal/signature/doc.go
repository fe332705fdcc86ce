// Package signature signs outbound API requests and verifies signed requests.
//
// Requests are authenticated with auth_version 1.0: the signer adds
// auth_key, auth_timestamp and auth_version (plus body_md5 when a body is
// sent), builds the canonical string with the canonical package and
// attaches the hex HMAC-SHA256 of it as auth_signature.
//
// # Signing
//
//	signer, err := signature.NewSigner(signature.NewCredential("key", "secret"))
//	if err != nil {
//	    return err
//	}
//	signed, err := signer.Sign(signature.Request{
//	    Method: "POST",
//	    Path:   "/apps/1/events",
//	    Body:   body,
//	})
//	// signed.Params is the query string to send with body
//
// # Verifying
//
//	verifier, err := signature.NewVerifier(signature.StaticLookup(cred))
//	if err != nil {
//	    return err
//	}
//	cred, err := verifier.Verify(signature.Request{
//	    Method: r.Method,
//	    Path:   r.URL.Path,
//	    Params: r.URL.Query(),
//	    Body:   body,
//	})
//
// # Security Considerations
//
//   - Signatures are compared in constant time
//   - The timestamp grace window defaults to 600 seconds in both directions
//   - Verification errors embed the expected string to sign; they are meant
//     for the developer holding the secret and must not be echoed to
//     untrusted callers
package signature
