// Copyright (C) 2022-2023  Whey Labs
//
// SPDX-License-Identifier: Apache-2.0

package pyproject

// licenseLookup maps license short codes (SPDX identifiers where they exist)
// to the license names used in trove classifiers.
var licenseLookup = map[string]string{
	"Apache-2.0":        "Apache Software License",
	"BSD":               "BSD License",
	"BSD-2-Clause":      "BSD License",
	"BSD-3-Clause":      "BSD License",
	"AGPL-3.0-only":     "GNU Affero General Public License v3",
	"AGPL-3.0":          "GNU Affero General Public License v3",
	"AGPL-3.0-or-later": "GNU Affero General Public License v3 or later (AGPLv3+)",
	"AGPL-3.0+":         "GNU Affero General Public License v3 or later (AGPLv3+)",
	"FDL":               "GNU Free Documentation License (FDL)",
	"GFDL-1.1-only":     "GNU Free Documentation License (FDL)",
	"GFDL-1.1-or-later": "GNU Free Documentation License (FDL)",
	"GFDL-1.2-only":     "GNU Free Documentation License (FDL)",
	"GFDL-1.2-or-later": "GNU Free Documentation License (FDL)",
	"GFDL-1.3-only":     "GNU Free Documentation License (FDL)",
	"GFDL-1.3-or-later": "GNU Free Documentation License (FDL)",
	"GFDL-1.2":          "GNU Free Documentation License (FDL)",
	"GFDL-1.1":          "GNU Free Documentation License (FDL)",
	"GFDL-1.3":          "GNU Free Documentation License (FDL)",
	"GPL":               "GNU General Public License (GPL)",
	"GPL-1.0-only":      "GNU General Public License (GPL)",
	"GPL-1.0-or-later":  "GNU General Public License (GPL)",
	"GPLv2":             "GNU General Public License v2 (GPLv2)",
	"GPL-2.0-only":      "GNU General Public License v2 (GPLv2)",
	"GPLv2+":            "GNU General Public License v2 or later (GPLv2+)",
	"GPL-2.0-or-later":  "GNU General Public License v2 or later (GPLv2+)",
	"GPLv3":             "GNU General Public License v3 (GPLv3)",
	"GPL-3.0-only":      "GNU General Public License v3 (GPLv3)",
	"GPLv3+":            "GNU General Public License v3 or later (GPLv3+)",
	"GPL-3.0-or-later":  "GNU General Public License v3 or later (GPLv3+)",
	"LGPLv2":            "GNU Lesser General Public License v2 (LGPLv2)",
	"LGPLv2+":           "GNU Lesser General Public License v2 or later (LGPLv2+)",
	"LGPLv3":            "GNU Lesser General Public License v3 (LGPLv3)",
	"LGPL-3.0-only":     "GNU Lesser General Public License v3 (LGPLv3)",
	"LGPLv3+":           "GNU Lesser General Public License v3 or later (LGPLv3+)",
	"LGPL-3.0-or-later": "GNU Lesser General Public License v3 or later (LGPLv3+)",
	"LGPL":              "GNU Library or Lesser General Public License (LGPL)",
	"MIT":               "MIT License",
	"PSF-2.0":           "Python Software Foundation License",
}
