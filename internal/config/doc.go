// Durations are written as Go duration strings ("150ms", "5m"), the pitch
// algorithm as amdf, normxcorr or hps, and the batch mode as stabilized or
// raw. Keys absent from the file keep their defaults.
package config
