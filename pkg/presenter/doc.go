/*
Package presenter implements per-domain governance of outgoing data.

A Presenter runs handler output through an ordered pipeline:

 1. Collections longer than the truncation limit are cut and an overflow
    notice is queued.
 2. Embedded child presenters are run on relation keys of the raw data and
    their auxiliary blocks absorbed.
 3. Every object is validated in strip mode against the schema.
 4. A caller selection projects top-level fields of the outgoing copy.
 5. Redaction paths mask values in the outgoing copy.
 6. UI blocks, rules and suggestions are computed from the full validated
    data, never from the projected or redacted copy.

A Presenter is configured while Building, may be Compiled ahead of time and
is Sealed by its first Make call; Configure then fails with ErrSealed.
*/
package presenter
