// Package clients provides an HTTP client for the secret sharing API.
//
//	client := clients.NewSharingClient("http://localhost:8080")
//	shares, err := client.SplitPOST(ctx, 2, 3, "Super Secret")
//	if err != nil {
//	    return err
//	}
//	secret, err := client.Recover(ctx, shares[1:])
//
// Failed calls return an *APIError whose Unwrap maps the HTTP status back to the
// interfaces sentinel errors, so errors.Is(err, interfaces.ErrIntegrityViolation)
// works on the client side too.
package clients
