package layout

// defaultSlotNames is the stock grid. Cells 21, 41 and 43 are group
// cells carrying two characters each; cells 40 and 47 are blocked.
var defaultSlotNames = map[int][]string{
	0:  {"Mario"},
	1:  {"Luigi"},
	2:  {"Peach"},
	3:  {"Daisy"},
	4:  {"Rosalina"},
	5:  {"TanukiMario"},
	6:  {"CatPeach"},
	7:  {"DrvChr01"},
	8:  {"Yoshi"},
	9:  {"Kinopio"},
	10: {"Nokonoko"},
	11: {"Heyho"},
	12: {"Jugem"},
	13: {"Kinopico"},
	14: {"KingTeresa"},
	15: {"DrvChr03"},
	16: {"BbMario"},
	17: {"BbLuigi"},
	18: {"BbPeach"},
	19: {"BbDaisy"},
	20: {"BbRosalina"},
	21: {"GoldMario", "MetalMario"},
	22: {"MetalPeach"},
	23: {"DrvChr04"},
	24: {"Wario"},
	25: {"Waluigi"},
	26: {"DK"},
	27: {"Koopa"},
	28: {"Karon"},
	29: {"KoopaJr"},
	30: {"HoneKoopa"},
	31: {"DrvChr02"},
	32: {"Lemmy"},
	33: {"Larry"},
	34: {"Wendy"},
	35: {"Ludwig"},
	36: {"Iggy"},
	37: {"Roy"},
	38: {"Morton"},
	39: {"DrvChr07"},
	41: {"AnimalBoyA", "AnimalGirlA"},
	42: {"Shizue"},
	43: {"Link", "LinkBotw"},
	44: {"DrvChr05"},
	45: {"DrvChr06"},
	46: {"DrvChr08"},
}
