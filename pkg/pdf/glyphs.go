package pdf

// glyphToUnicode maps PostScript glyph names to text. Names follow the
// Adobe Glyph List; only the ones seen in practice are listed.
var glyphToUnicode = map[string]string{
	"/space":        " ",
	"/exclam":       "!",
	"/quotedbl":     "\"",
	"/numbersign":   "#",
	"/dollar":       "$",
	"/percent":      "%",
	"/ampersand":    "&",
	"/quoteright":   "'",
	"/quotesingle":  "'",
	"/parenleft":    "(",
	"/parenright":   ")",
	"/asterisk":     "*",
	"/plus":         "+",
	"/comma":        ",",
	"/hyphen":       "-",
	"/period":       ".",
	"/slash":        "/",
	"/zero":         "0",
	"/one":          "1",
	"/two":          "2",
	"/three":        "3",
	"/four":         "4",
	"/five":         "5",
	"/six":          "6",
	"/seven":        "7",
	"/eight":        "8",
	"/nine":         "9",
	"/colon":        ":",
	"/semicolon":    ";",
	"/less":         "<",
	"/equal":        "=",
	"/greater":      ">",
	"/question":     "?",
	"/at":           "@",
	"/A":            "A",
	"/B":            "B",
	"/C":            "C",
	"/D":            "D",
	"/E":            "E",
	"/F":            "F",
	"/G":            "G",
	"/H":            "H",
	"/I":            "I",
	"/J":            "J",
	"/K":            "K",
	"/L":            "L",
	"/M":            "M",
	"/N":            "N",
	"/O":            "O",
	"/P":            "P",
	"/Q":            "Q",
	"/R":            "R",
	"/S":            "S",
	"/T":            "T",
	"/U":            "U",
	"/V":            "V",
	"/W":            "W",
	"/X":            "X",
	"/Y":            "Y",
	"/Z":            "Z",
	"/bracketleft":  "[",
	"/backslash":    "\\",
	"/bracketright": "]",
	"/asciicircum":  "^",
	"/underscore":   "_",
	"/grave":        "`",
	"/quoteleft":    "`",
	"/a":            "a",
	"/b":            "b",
	"/c":            "c",
	"/d":            "d",
	"/e":            "e",
	"/f":            "f",
	"/g":            "g",
	"/h":            "h",
	"/i":            "i",
	"/j":            "j",
	"/k":            "k",
	"/l":            "l",
	"/m":            "m",
	"/n":            "n",
	"/o":            "o",
	"/p":            "p",
	"/q":            "q",
	"/r":            "r",
	"/s":            "s",
	"/t":            "t",
	"/u":            "u",
	"/v":            "v",
	"/w":            "w",
	"/x":            "x",
	"/y":            "y",
	"/z":            "z",
	"/braceleft":    "{",
	"/bar":          "|",
	"/braceright":   "}",
	"/asciitilde":   "~",


	// Punctuation and typographic quotes
	"/quotedblleft":   "“",
	"/quotedblright":  "”",
	"/quotesinglbase": "‚",
	"/quotedblbase":   "„",
	"/guillemotleft":  "«",
	"/guillemotright": "»",
	"/endash":         "–",
	"/emdash":         "—",
	"/bullet":         "•",
	"/ellipsis":       "…",
	"/dagger":         "†",
	"/daggerdbl":      "‡",
	"/degree":         "°",
	"/section":        "§",
	"/paragraph":      "¶",
	"/copyright":      "©",
	"/registered":     "®",
	"/trademark":      "™",
	"/exclamdown":     "¡",
	"/questiondown":   "¿",
	"/periodcentered": "·",
	"/nbspace":        " ",

	// Accented vowels
	"/Aacute":      "Á",
	"/aacute":      "á",
	"/Agrave":      "À",
	"/agrave":      "à",
	"/Acircumflex": "Â",
	"/acircumflex": "â",
	"/Adieresis":   "Ä",
	"/adieresis":   "ä",
	"/Eacute":      "É",
	"/eacute":      "é",
	"/Egrave":      "È",
	"/egrave":      "è",
	"/Ecircumflex": "Ê",
	"/ecircumflex": "ê",
	"/Edieresis":   "Ë",
	"/edieresis":   "ë",
	"/Iacute":      "Í",
	"/iacute":      "í",
	"/Idieresis":   "Ï",
	"/idieresis":   "ï",
	"/Ntilde":      "Ñ",
	"/ntilde":      "ñ",
	"/Oacute":      "Ó",
	"/oacute":      "ó",
	"/Ocircumflex": "Ô",
	"/ocircumflex": "ô",
	"/Odieresis":   "Ö",
	"/odieresis":   "ö",
	"/Uacute":      "Ú",
	"/uacute":      "ú",
	"/Ugrave":      "Ù",
	"/ugrave":      "ù",
	"/Udieresis":   "Ü",
	"/udieresis":   "ü",
	"/germandbls":  "ß",
	// Ligatures
	"/fi":  "fi",
	"/fl":  "fl",
	"/ff":  "ff",
	"/ffi": "ffi",
	"/ffl": "ffl",
	"/st":  "st",
	"/ct":  "ct",
	"/IJ":  "IJ",
	"/ij":  "ij",

	// Extended Latin characters
	"/AE":       "Æ",
	"/ae":       "æ",
	"/OE":       "Œ",
	"/oe":       "œ",
	"/oslash":   "ø",
	"/Oslash":   "Ø",
	"/lslash":   "ł",
	"/Lslash":   "Ł",
	"/Eth":      "Ð",
	"/eth":      "ð",
	"/Thorn":    "Þ",
	"/thorn":    "þ",
	"/ssharp":   "ß",
	"/Scaron":   "Š",
	"/scaron":   "š",
	"/Zcaron":   "Ž",
	"/zcaron":   "ž",
	"/Ccedilla": "Ç",
	"/ccedilla": "ç",

	// Mathematical operators
	"/minus":        "−", // U+2212 math minus (not hyphen)
	"/multiply":     "×",
	"/divide":       "÷",
	"/notequal":     "≠",
	"/lessequal":    "≤",
	"/greaterequal": "≥",
	"/approxequal":  "≈",
	"/infinity":     "∞",
	"/integral":     "∫",
	"/product":      "∏",
	"/summation":    "∑",
	"/radical":      "√",
	"/partialdiff":  "∂",
	"/plusminus":    "±",
	"/therefore":    "∴",
	"/proportional": "∝",
	"/angle":        "∠",
	"/logicaland":   "∧",
	"/logicalor":    "∨",
	"/intersection": "∩",
	"/union":        "∪",

	// Greek letters (common in math/science)
	"/Alpha":   "Α",
	"/Beta":    "Β",
	"/Gamma":   "Γ",
	"/Delta":   "Δ",
	"/Epsilon": "Ε",
	"/Zeta":    "Ζ",
	"/Eta":     "Η",
	"/Theta":   "Θ",
	"/Iota":    "Ι",
	"/Kappa":   "Κ",
	"/Lambda":  "Λ",
	"/Mu":      "Μ",
	"/Nu":      "Ν",
	"/Xi":      "Ξ",
	"/Omicron": "Ο",
	"/Pi":      "Π",
	"/Rho":     "Ρ",
	"/Sigma":   "Σ",
	"/Tau":     "Τ",
	"/Upsilon": "Υ",
	"/Phi":     "Φ",
	"/Chi":     "Χ",
	"/Psi":     "Ψ",
	"/Omega":   "Ω",
	"/alpha":   "α",
	"/beta":    "β",
	"/gamma":   "γ",
	"/delta":   "δ",
	"/epsilon": "ε",
	"/zeta":    "ζ",
	"/eta":     "η",
	"/theta":   "θ",
	"/iota":    "ι",
	"/kappa":   "κ",
	"/lambda":  "λ",
	"/mu":      "μ",
	"/nu":      "ν",
	"/xi":      "ξ",
	"/omicron": "ο",
	"/pi":      "π",
	"/rho":     "ρ",
	"/sigma":   "σ",
	"/tau":     "τ",
	"/upsilon": "υ",
	"/phi":     "φ",
	"/chi":     "χ",
	"/psi":     "ψ",
	"/omega":   "ω",

	// Superscripts
	"/zero.superior":  "⁰",
	"/one.superior":   "¹",
	"/two.superior":   "²",
	"/three.superior": "³",
	"/four.superior":  "⁴",
	"/five.superior":  "⁵",
	"/six.superior":   "⁶",
	"/seven.superior": "⁷",
	"/eight.superior": "⁸",
	"/nine.superior":  "⁹",
	"/plus.superior":  "⁺",
	"/minus.superior": "⁻",

	// Subscripts
	"/zero.inferior":  "₀",
	"/one.inferior":   "₁",
	"/two.inferior":   "₂",
	"/three.inferior": "₃",
	"/four.inferior":  "₄",
	"/five.inferior":  "₅",
	"/six.inferior":   "₆",
	"/seven.inferior": "₇",
	"/eight.inferior": "₈",
	"/nine.inferior":  "₉",
	"/plus.inferior":  "₊",
	"/minus.inferior": "₋",

	// Zero-width characters
	"/zerowidthspace":     "\u200B",
	"/zerowidthnonjoiner": "\u200C",
	"/zerowidthjoiner":    "\u200D",
}
