package types

// DecryptionErrorKind classifies why a wrapper transaction was rejected.
type DecryptionErrorKind uint8

const (
	KindDecryptedHash DecryptionErrorKind = iota + 1
	KindInvalidTx
	KindInvalidWrapperTx
	KindUnsigned
	KindSigError
)

// String returns a short label, suitable for metrics.
func (k DecryptionErrorKind) String() string {
	switch k {
	case KindDecryptedHash:
		return "decrypted_hash"
	case KindInvalidTx:
		return "invalid_tx"
	case KindInvalidWrapperTx:
		return "invalid_wrapper_tx"
	case KindUnsigned:
		return "unsigned"
	case KindSigError:
		return "sig_error"
	default:
		return "unknown"
	}
}

// DecryptionError is returned when a wrapper transaction cannot be recovered
// from its envelope or its payload cannot be decrypted into a valid Tx.
// Errors compare equal under errors.Is when their kinds match, and Unwrap
// exposes the underlying cause.
type DecryptionError struct {
	Kind DecryptionErrorKind
	Err  error
}

// Sentinel values for errors.Is.
var (
	ErrDecryptedHash    = &DecryptionError{Kind: KindDecryptedHash}
	ErrInvalidTx        = &DecryptionError{Kind: KindInvalidTx}
	ErrInvalidWrapperTx = &DecryptionError{Kind: KindInvalidWrapperTx}
	ErrUnsigned         = &DecryptionError{Kind: KindUnsigned}
	ErrSigError         = &DecryptionError{Kind: KindSigError}
)

// NewSigError wraps a signature verifier failure.
func NewSigError(cause error) *DecryptionError {
	return &DecryptionError{Kind: KindSigError, Err: cause}
}

func (e *DecryptionError) Error() string {
	switch e.Kind {
	case KindDecryptedHash:
		return "the hash of the decrypted tx does not match the hash commitment"
	case KindInvalidTx:
		if e.Err != nil {
			return "the decryption did not produce a valid Tx: " + e.Err.Error()
		}
		return "the decryption did not produce a valid Tx"
	case KindInvalidWrapperTx:
		if e.Err != nil {
			return "the given Tx data did not contain a valid WrapperTx: " + e.Err.Error()
		}
		return "the given Tx data did not contain a valid WrapperTx"
	case KindUnsigned:
		return "expected a valid signed WrapperTx data"
	case KindSigError:
		if e.Err != nil {
			return "signature verification failed: " + e.Err.Error()
		}
		return "signature verification failed"
	default:
		return "wrapper decryption failed"
	}
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// Is matches any DecryptionError of the same kind.
func (e *DecryptionError) Is(target error) bool {
	t, ok := target.(*DecryptionError)
	return ok && t.Kind == e.Kind
}
