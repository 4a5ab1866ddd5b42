// Package httputil holds HTTP helpers shared by netlens clients.
//
// [Retry] re-runs an operation with exponential backoff while it fails with a
// [RetryableError]. Clients wrap transient failures (transport errors, 5xx and
// 429 responses, see [RetryableStatus]) and return everything else as is:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    ...
//	})
package httputil
