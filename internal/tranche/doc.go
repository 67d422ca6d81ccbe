// Package tranche turns a ZINC tranche selection into download URLs.
//
// A tranche code has six letters: molecular weight, logP, reactivity,
// purchasability, pH and charge. The selected values of each dimension are
// combined as a cartesian product and each code is laid out on the file
// server as
//
//	{base}/{code[0:2]}/{code[2:6]}/{code}{suffix}
//
// e.g. https://files2.docking.org/3D/BA/BAEB/BAEBRN.smi. Nothing in this
// package touches the network.
package tranche
